// Package phase implements the discussion's phase state machine.
//
// A session moves strictly forward through four phases:
//
//	ISSUE_PROPOSAL -> STEEL_MANNING -> DISCUSSION -> SUMMARY
//
// Manager.Complete is the only transition. It accepts the current phase
// alone, runs the gates registered for it, records the payload, advances,
// checkpoints and then notifies subscribers. SUMMARY is terminal: completing
// it finishes the session and it remains the current phase.
//
// Gates may perform slow work (the steel-manning gate calls the analysis
// provider). Transitions are serialized, but Current and the other readers
// never wait for a running gate.
//
// # Usage
//
//	m := phase.NewManager(phase.WithCheckpointer(tracker), phase.WithLogger(logger))
//	m.RegisterGate(phase.SteelManning, confirmationGate)
//	unsubscribe := m.Subscribe(func(s phase.Snapshot) { render(s) })
//	defer unsubscribe()
//
//	if err := m.Complete(ctx, phase.IssueProposal, issue); err != nil {
//	    ...
//	}
package phase
