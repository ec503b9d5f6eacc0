package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolve", func() {
	var (
		origHome   string
		origXDG    string
		origSqlite string
		origCwd    string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		origSqlite = os.Getenv("DRIFTLINE_SQLITE")
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Setenv("DRIFTLINE_SQLITE", origSqlite)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("prefers the override", func() {
		path, err := Resolve("/tmp/override.db")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/override.db"))
	})

	It("prefers DRIFTLINE_SQLITE when set", func() {
		Expect(os.Setenv("DRIFTLINE_SQLITE", "/tmp/custom.db")).To(Succeed())

		path, err := Resolve("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("resolves ~/.driftline/driftline.db when present", func() {
		homeDir, err := os.MkdirTemp("", "driftline-home-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(homeDir) })

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("DRIFTLINE_SQLITE", "")).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())

		dbDir := filepath.Join(homeDir, ".driftline")
		Expect(os.MkdirAll(dbDir, 0o755)).To(Succeed())
		existing := filepath.Join(dbDir, "driftline.db")
		Expect(os.WriteFile(existing, nil, 0o600)).To(Succeed())

		path, err := Resolve("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(existing))
	})

	It("falls back to a fresh home path when nothing exists", func() {
		homeDir, err := os.MkdirTemp("", "driftline-home-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(homeDir) })

		workDir, err := os.MkdirTemp("", "driftline-cwd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(workDir) })

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("DRIFTLINE_SQLITE", "")).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
		Expect(os.Chdir(workDir)).To(Succeed())

		path, err := Resolve("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(homeDir, ".driftline", "driftline.db")))

		// The directory is created so the store can open the file.
		info, err := os.Stat(filepath.Join(homeDir, ".driftline"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})
})
