// Package health implements liveness, readiness and version endpoints.
//
// Components register checks with a Checker. Critical checks (experiment
// store, catalog) make the service unready when they fail; other checks
// (promotion broker, evidence storage) only mark it degraded:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCritical("store", st.Ping)
//	checker.RegisterCheck("promotion", publisher.Check)
//	health.Register(mux, &cfg.Telemetry.Health, checker, health.NewVersionInfo(version, commit, date))
//
// Readiness answers 200 for "ready" and "degraded" and 503 for "unhealthy".
package health
