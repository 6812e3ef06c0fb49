package httptransport

import "expvar"

var (
	metricAdminActionTotal       = expvar.NewInt("admin_action_total")
	metricAdminActionErrors      = expvar.NewInt("admin_action_errors_total")
	metricAdminUnauthorizedTotal = expvar.NewInt("admin_unauthorized_total")
)
