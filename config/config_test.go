package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v2"

	. "code.cloudfoundry.org/goroutercore/config"
)

var _ = Describe("Config", func() {
	var cfg *Config

	BeforeEach(func() {
		var err error
		cfg, err = DefaultConfig()
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("DefaultConfig", func() {
		It("sets a sane default port", func() {
			Expect(cfg.Port).To(Equal(uint16(8081)))
		})

		It("defaults GoMaxProcs to auto", func() {
			Expect(cfg.GoMaxProcs).To(Equal(-1))
		})

		It("defaults the status listener", func() {
			Expect(cfg.Status.Host).To(Equal("0.0.0.0"))
			Expect(cfg.Status.Port).To(Equal(uint16(8080)))
		})

		It("defaults the TLS port even though TLS is disabled", func() {
			Expect(cfg.TLS.Enable).To(BeFalse())
			Expect(cfg.TLS.Port).To(Equal(uint16(443)))
		})
	})

	Describe("Initialize", func() {
		It("overlays YAML onto the existing defaults", func() {
			b := []byte(`
port: 9090
worker_count: 12
logging:
  level: debug
`)
			Expect(cfg.Initialize(b)).To(Succeed())
			Expect(cfg.Port).To(Equal(uint16(9090)))
			Expect(cfg.WorkerCount).To(Equal(12))
			Expect(cfg.Logging.Level).To(Equal(LogLevel("debug")))

			Expect(cfg.Status.Port).To(Equal(uint16(8080)))
		})

		It("returns an error for malformed YAML", func() {
			Expect(cfg.Initialize([]byte("port: [this is not valid"))).NotTo(Succeed())
		})
	})

	Describe("Process", func() {
		It("resolves GoMaxProcs from -1 to the number of CPUs", func() {
			Expect(cfg.Process()).To(Succeed())
			Expect(cfg.GoMaxProcs).To(BeNumerically(">", 0))
		})

		It("defaults WorkerCount when left unset", func() {
			cfg.WorkerCount = 0
			Expect(cfg.Process()).To(Succeed())
			Expect(cfg.WorkerCount).To(BeNumerically(">", 0))
		})

		It("leaves an explicit WorkerCount untouched", func() {
			cfg.WorkerCount = 7
			Expect(cfg.Process()).To(Succeed())
			Expect(cfg.WorkerCount).To(Equal(7))
		})

		It("stamps the logging job name", func() {
			Expect(cfg.Process()).To(Succeed())
			Expect(cfg.Logging.JobName).To(Equal("goroutercore"))
		})

		It("resolves the outbound IP", func() {
			Expect(cfg.Process()).To(Succeed())
			Expect(cfg.Ip).NotTo(BeEmpty())
		})

		It("errors when both the HTTP and TLS listeners are disabled", func() {
			cfg.DisableHTTP = true
			cfg.TLS.Enable = false
			Expect(cfg.Process()).To(MatchError(ContainSubstring("neither http nor tls listener is enabled")))
		})

		It("succeeds when HTTP is disabled but TLS is enabled", func() {
			cfg.DisableHTTP = true
			cfg.TLS.Enable = true
			Expect(cfg.Process()).To(Succeed())
		})

		It("defaults DrainTimeout when zero", func() {
			cfg.DrainTimeout = 0
			Expect(cfg.Process()).To(Succeed())
			Expect(cfg.DrainTimeout).To(Equal(60 * time.Second))
		})
	})

	Describe("InitConfigFromFile", func() {
		var path string

		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "goroutercore-config")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { _ = os.RemoveAll(dir) })

			path = filepath.Join(dir, "config.yml")
			b, err := yaml.Marshal(map[string]interface{}{
				"port":         9191,
				"worker_count": 3,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(path, b, 0644)).To(Succeed())
		})

		It("loads, applies and processes the file's YAML", func() {
			loaded, err := InitConfigFromFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Port).To(Equal(uint16(9191)))
			Expect(loaded.WorkerCount).To(Equal(3))
			Expect(loaded.Ip).NotTo(BeEmpty())
		})

		It("returns an error when the file does not exist", func() {
			_, err := InitConfigFromFile(filepath.Join(filepath.Dir(path), "missing.yml"))
			Expect(err).To(HaveOccurred())
		})
	})
})
