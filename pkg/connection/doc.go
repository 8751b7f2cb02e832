// Package connection supervises the link to one processor.
//
// A Supervisor wraps a connect function (typically the control
// service's Connect) with lifecycle state and automatic reconnection:
// a reported connection loss moves it to RECONNECTING and it re-dials
// on an exponential, jittered backoff until the processor answers. A
// deliberate Disconnect stays disconnected; only reported losses
// trigger reconnection.
//
// # Reconnection Strategy
//
// When a connection loss is reported:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Continue at 30s until a dial succeeds
//  5. Reset to 1s on success
//
// The ceiling matches the processor: a power-cycled AZM takes roughly
// half a minute to accept control connections again.
//
// # Jitter
//
// Each delay is extended by random(0, base * 0.25) so several clients
// losing one processor do not re-dial in lockstep.
//
// # Wiring
//
//	var sup *connection.Supervisor
//	cfg := control.DefaultConfig()
//	cfg.OnConnectionLost = func(cause error) { sup.ConnectionLost(cause) }
//	svc, _ := control.New(proc, cfg)
//	sup = connection.NewSupervisor(svc.Connect, connection.SupervisorConfig{})
//	sup.Start()
//	defer sup.Close()
//
// The supervisor owns no sockets. It decides when to dial; the connect
// function decides how.
package connection
