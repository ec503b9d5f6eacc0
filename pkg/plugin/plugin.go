// Package plugin provides the extension-bundle contract and the process-wide
// registry that discovers bundles once at startup. Bundles contribute
// algorithm types, per-item display callbacks, and server lifecycle hooks.
package plugin

import (
	"context"

	"github.com/driftline/driftline/pkg/algorithm"
)

// AlgorithmType is the algorithm contract bundles contribute.
type AlgorithmType = algorithm.Type

// ItemDisplayFunc augments an item's rendered display with an extra HTML
// fragment. Returning "" contributes nothing for that item.
type ItemDisplayFunc = algorithm.ItemDisplayFunc

// TeardownFunc undoes a lifecycle hook's setup. May be nil.
type TeardownFunc func()

// LifecycleHook runs once at server start; its returned teardown runs once
// at shutdown.
type LifecycleHook func(ctx context.Context) (TeardownFunc, error)

// Plugin is one bundle's manifest: what it contributes to the host.
type Plugin struct {
	Name        string
	DisplayName string
	Description string
	Author      string

	Algorithms   []algorithm.Type
	ItemDisplays []ItemDisplayFunc
	Hooks        []LifecycleHook
}

// Bundle is the capability interface an extension bundle implements.
// Manifest is called exactly once, during registry discovery.
type Bundle interface {
	Manifest() (*Plugin, error)
}
