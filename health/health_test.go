package health_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "code.cloudfoundry.org/goroutercore/health"
)

var _ = Describe("Health", func() {
	var h *Health

	BeforeEach(func() {
		h = &Health{}
	})

	It("starts out Initializing", func() {
		Expect(h.Health()).To(Equal(Initializing))
	})

	Context("when healthy", func() {
		It("reports healthy", func() {
			h.SetHealth(Healthy)
			Expect(h.Health()).To(Equal(Healthy))
		})

		It("does not degrade", func() {
			called := false
			h.OnDegrade = func() { called = true }

			h.SetHealth(Healthy)
			Expect(called).To(BeFalse(), "OnDegrade was called")
		})

		Context("set degraded", func() {
			BeforeEach(func() {
				h.SetHealth(Healthy)
			})

			It("updates the status", func() {
				h.SetHealth(Degraded)
				Expect(h.Health()).To(Equal(Degraded))
			})

			It("calls OnDegrade", func() {
				called := false
				h.OnDegrade = func() { called = true }

				h.SetHealth(Degraded)
				Expect(called).To(BeTrue(), "OnDegrade wasn't called")
			})
		})
	})

	Context("when already degraded", func() {
		var calledN int

		BeforeEach(func() {
			calledN = 0
			h.OnDegrade = func() { calledN++ }
			h.SetHealth(Degraded)
		})

		It("does not call OnDegrade again", func() {
			h.SetHealth(Degraded)
			Expect(calledN).To(Equal(1), "OnDegrade was called multiple times")
		})
	})
})

var _ = Describe("Healthz", func() {
	It("reports ok", func() {
		Expect((&Healthz{}).Value()).To(Equal("ok"))
	})
})
