package logger_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	log "code.cloudfoundry.org/goroutercore/logger"
)

var _ = Describe("Logger", func() {
	var l log.Logger

	BeforeEach(func() {
		l = log.NewLogger("test-component")
	})

	It("reports its own session name", func() {
		Expect(l.SessionName()).To(Equal("test-component"))
	})

	Describe("Session", func() {
		It("appends the child name with a dot separator", func() {
			child := l.Session("child")
			Expect(child.SessionName()).To(Equal("test-component.child"))
		})

		It("leaves the parent's session name untouched", func() {
			_ = l.Session("child")
			Expect(l.SessionName()).To(Equal("test-component"))
		})
	})

	Describe("With", func() {
		It("returns a logger that keeps the same session name", func() {
			withField := l.With()
			Expect(withField.SessionName()).To(Equal("test-component"))
		})
	})

	Describe("WithRequestID", func() {
		It("returns a logger that keeps the same session name", func() {
			tagged := l.WithRequestID("abc-123")
			Expect(tagged.SessionName()).To(Equal("test-component"))
		})
	})
})
