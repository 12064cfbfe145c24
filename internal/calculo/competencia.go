package calculo

import "time"

// DiaCortePadrao is the default payroll cutoff: payments made on or before
// the 5th of a month count toward that month, later payments toward the next.
const DiaCortePadrao = 5

// FormatoCompetencia is the YYYY-MM layout used everywhere a competence
// month is stored or filtered.
const FormatoCompetencia = "2006-01"

// Competencia derives the accounting month a payment is attributed to.
// A non-positive diaCorte falls back to DiaCortePadrao.
func Competencia(dataPagamento time.Time, diaCorte int) string {
	if diaCorte <= 0 {
		diaCorte = DiaCortePadrao
	}
	ano, mes, dia := dataPagamento.Date()
	if dia <= diaCorte {
		return dataPagamento.Format(FormatoCompetencia)
	}
	// First day of the following month — AddDate would skip a month when the
	// payment date is the 29th..31st (time.Date normalization).
	proximo := time.Date(ano, mes+1, 1, 0, 0, 0, 0, dataPagamento.Location())
	return proximo.Format(FormatoCompetencia)
}
