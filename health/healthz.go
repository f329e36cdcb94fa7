package health

// Healthz backs a liveness probe endpoint: something is listening and able
// to respond at all, independent of Health's readiness semantics. Grounded
// on common/health.Healthz in the teacher.
type Healthz struct{}

func (h *Healthz) Value() string {
	return "ok"
}
