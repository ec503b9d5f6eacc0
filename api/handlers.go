package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/eventstream"
	"github.com/driftline/driftline/pkg/session"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AlgorithmInfo describes one registered algorithm type.
type AlgorithmInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Default     bool   `json:"default,omitempty"`
}

// TrainRequest selects an algorithm and its hyperparameters.
type TrainRequest struct {
	// Algorithm is the registered type name; empty selects the default.
	Algorithm string `json:"algorithm"`

	// Params are the algorithm's hyperparameters, e.g. num_clusters.
	Params map[string]string `json:"params"`

	// Hours overrides the training window.
	Hours int `json:"hours"`
}

// TrainResponse reports a completed training run.
type TrainResponse struct {
	Algorithm    string `json:"algorithm"`
	ModelVersion string `json:"model_version,omitempty"`
	ItemCount    int    `json:"item_count"`
}

// SettingsRequest updates the session's name, stored form values, and
// provider overrides.
type SettingsRequest struct {
	Name       string                      `json:"name"`
	UISettings map[string]string           `json:"ui_settings"`
	Settings   *algorithm.ProviderSettings `json:"settings"`
}

// SettingsResponse is the session state exposed to the UI.
type SettingsResponse struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Algorithm  string                     `json:"algorithm,omitempty"`
	HasModel   bool                       `json:"has_model"`
	UISettings map[string]string          `json:"ui_settings,omitempty"`
	Settings   algorithm.ProviderSettings `json:"settings"`
}

// versioned is satisfied by algorithms that expose their model version.
type versioned interface {
	ModelVersion() string
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListAlgorithms returns every registered algorithm type.
func (s *Server) handleListAlgorithms(c *fiber.Ctx) error {
	var defaultName string
	if def := s.deps.Registry.Default(); def != nil {
		defaultName = def.Name()
	}

	types := s.deps.Registry.Algorithms()
	infos := make([]AlgorithmInfo, 0, len(types))
	for _, typ := range types {
		infos = append(infos, AlgorithmInfo{
			Name:        typ.Name(),
			DisplayName: typ.DisplayName(),
			Default:     typ.Name() == defaultName,
		})
	}

	return c.JSON(infos)
}

// handleAlgorithmForm returns the algorithm's parameter form fragment,
// prefilled from the session's stored settings.
func (s *Server) handleAlgorithmForm(c *fiber.Ctx) error {
	typ, ok := s.deps.Registry.Resolve(c.Params("name"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "unknown algorithm"})
	}

	sess := requestSession(c)
	rc := s.renderContext(sess)

	c.Type("html")
	return c.SendString(typ.RenderParams(rc))
}

// handleTimeline renders the session's timeline. With no trained model the
// window is returned as a flat item list.
func (s *Server) handleTimeline(c *fiber.Ctx) error {
	sess := requestSession(c)

	_, alg := session.ResolveAlgorithm(sess, s.deps.Registry, s.logger)

	since := time.Now().Add(-s.window(c.Query("hours")))
	items, err := s.deps.Items.ItemsSince(c.Context(), since)
	if err != nil {
		s.logger.Error("failed to load timeline items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load items"})
	}

	if alg == nil {
		return c.JSON(fiber.Map{
			"algorithm": nil,
			"items":     items,
		})
	}

	renderable, err := alg.Render(c.Context(), items, s.renderContext(sess))
	if err != nil {
		s.logger.Error("failed to render timeline",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to render timeline"})
	}

	return renderable.Render(c)
}

// handleTrain trains a model for the session and persists it. The stored
// row is only replaced after the whole run succeeds.
func (s *Server) handleTrain(c *fiber.Ctx) error {
	var req TrainRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	var typ algorithm.Type
	if req.Algorithm == "" {
		typ = s.deps.Registry.Default()
	} else {
		var ok bool
		typ, ok = s.deps.Registry.Resolve(req.Algorithm)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown algorithm"})
		}
	}
	if typ == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "no algorithms registered"})
	}

	sess := requestSession(c)
	span := s.window(strconv.Itoa(req.Hours))

	tc := &algorithm.TrainContext{
		End:       time.Now(),
		Span:      span,
		SessionID: sess.ID,
		Settings:  sess.Settings,
		Items:     s.deps.Items,
	}

	items, err := tc.TrainingItems(c.Context())
	if err != nil {
		s.logger.Error("failed to load training items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load items"})
	}

	alg, err := typ.Train(c.Context(), tc, req.Params)
	if err != nil {
		s.logger.Error("training failed",
			zap.String("session_id", sess.ID),
			zap.String("algorithm", typ.Name()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "training failed"})
	}

	model, err := alg.Serialize()
	if err != nil {
		s.logger.Error("failed to serialize model", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to serialize model"})
	}

	sess.Spec = &algorithm.Spec{Type: typ.Name(), Params: req.Params}
	sess.Model = model
	if sess.UISettings == nil {
		sess.UISettings = make(map[string]string, len(req.Params))
	}
	for key, value := range req.Params {
		sess.UISettings[key] = value
	}

	if err := s.deps.Sessions.Put(c.Context(), sess); err != nil {
		s.logger.Error("failed to store session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store session"})
	}

	resp := TrainResponse{
		Algorithm: typ.Name(),
		ItemCount: len(items),
	}
	if v, ok := alg.(versioned); ok {
		resp.ModelVersion = v.ModelVersion()
	}

	s.publishTrained(c, &resp, sess.ID)

	return c.JSON(resp)
}

// publishTrained emits the trained-model event. Publishing is best effort;
// a broker outage must not fail the train request.
func (s *Server) publishTrained(c *fiber.Ctx, resp *TrainResponse, sessionID string) {
	if s.deps.Publisher == nil {
		return
	}

	event := eventstream.NewModelTrainedEvent(sessionID, resp.Algorithm, resp.ModelVersion, resp.ItemCount)
	if err := s.deps.Publisher.PublishModelTrained(c.Context(), event); err != nil {
		s.logger.Warn("failed to publish trained event",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// handleSync runs one ingestion pass against the configured source.
func (s *Server) handleSync(c *fiber.Ctx) error {
	if s.deps.Ingest == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "no timeline source configured"})
	}

	stats, err := s.deps.Ingest.Sync(c.Context())
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "sync failed"})
	}

	return c.JSON(stats)
}

// handleGetSettings returns the session's stored state.
func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	return c.JSON(settingsResponse(requestSession(c)))
}

// handlePostSettings updates the session's name and form values.
func (s *Server) handlePostSettings(c *fiber.Ctx) error {
	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	sess := requestSession(c)
	if req.Name != "" {
		sess.Name = req.Name
	}
	if req.UISettings != nil {
		if sess.UISettings == nil {
			sess.UISettings = make(map[string]string, len(req.UISettings))
		}
		for key, value := range req.UISettings {
			sess.UISettings[key] = value
		}
	}
	if req.Settings != nil {
		sess.Settings = *req.Settings
	}

	if err := s.deps.Sessions.Put(c.Context(), sess); err != nil {
		s.logger.Error("failed to store session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store session"})
	}

	return c.JSON(settingsResponse(sess))
}

func settingsResponse(sess *session.Session) SettingsResponse {
	resp := SettingsResponse{
		ID:         sess.ID,
		Name:       sess.Name,
		HasModel:   sess.HasModel(),
		UISettings: sess.UISettings,
		Settings:   sess.Settings,
	}
	if sess.Spec != nil {
		resp.Algorithm = sess.Spec.Type
	}
	return resp
}

// renderContext assembles the per-request render state from the session
// and the registry's display callbacks.
func (s *Server) renderContext(sess *session.Session) *algorithm.RenderContext {
	rc := &algorithm.RenderContext{
		Displays: s.deps.Registry.ItemDisplays(),
	}
	if sess != nil {
		rc.SessionID = sess.ID
		rc.UISettings = sess.UISettings
	}
	return rc
}

// window parses an hour count, falling back to the configured default.
func (s *Server) window(hours string) time.Duration {
	if n, err := strconv.Atoi(hours); err == nil && n > 0 {
		return time.Duration(n) * time.Hour
	}
	if s.config.TrainWindow > 0 {
		return time.Duration(s.config.TrainWindow) * time.Hour
	}
	return DefaultWindowHours * time.Hour
}
