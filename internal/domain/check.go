package domain

// CheckResult es el contrato pass/fail + razones usado por las cuatro capas
// de filtrado. Una violación de criterio NO es un error: es el resultado
// esperado del filtro, y las razones se conservan para diagnóstico y ranking.
type CheckResult struct {
	Passed   bool
	Failures []string
}

// fail agrega una razón de rechazo y marca el resultado como fallido.
func (c *CheckResult) fail(reason string) {
	c.Passed = false
	c.Failures = append(c.Failures, reason)
}

// newCheck crea un resultado que pasa hasta que se registre una falla.
func newCheck() CheckResult {
	return CheckResult{Passed: true}
}
