package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors capture events into an slog.Logger, one Debug
// record per event. It makes the protocol visible in the process log
// during development without opening the .alog file afterwards.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger as a capture sink.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log emits the event as a Debug record named "protocol".
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.Zone != nil {
		attrs = append(attrs, slog.Int("zone", *event.Zone))
	}

	switch {
	case event.Frame != nil:
		attrs = frameAttrs(attrs, event.Frame)
	case event.Message != nil:
		attrs = messageAttrs(attrs, event.Message)
	case event.StateChange != nil:
		attrs = stateAttrs(attrs, event.StateChange)
	case event.Error != nil:
		attrs = errorAttrs(attrs, event.Error)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Frame bytes are deliberately not mirrored; the size is enough for the
// console, the full payload lives in the .alog file.
func frameAttrs(attrs []slog.Attr, f *FrameEvent) []slog.Attr {
	return append(attrs,
		slog.Int("frame_size", f.Size),
		slog.Bool("truncated", f.Truncated),
	)
}

func messageAttrs(attrs []slog.Attr, m *MessageEvent) []slog.Attr {
	attrs = append(attrs,
		slog.Int64("msg_id", m.ID),
		slog.String("msg_type", m.Type.String()),
	)
	if m.Method != "" {
		attrs = append(attrs, slog.String("method", m.Method.String()))
	}
	if m.Param != "" {
		attrs = append(attrs, slog.String("param", m.Param))
	}
	if m.Pct != nil {
		attrs = append(attrs, slog.Int("pct", *m.Pct))
	}
	if m.Val != nil {
		attrs = append(attrs, slog.Int("val", *m.Val))
	}
	if m.Result != "" {
		attrs = append(attrs, slog.String("result", m.Result))
	}
	if m.ErrorCode != nil {
		attrs = append(attrs, slog.Int("error_code", *m.ErrorCode))
	}
	if m.ProcessingTime != nil {
		attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
	}
	return attrs
}

func stateAttrs(attrs []slog.Attr, s *StateChangeEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("entity", s.Entity.String()),
		slog.String("old_state", s.OldState),
		slog.String("new_state", s.NewState),
	)
	if s.Reason != "" {
		attrs = append(attrs, slog.String("reason", s.Reason))
	}
	return attrs
}

func errorAttrs(attrs []slog.Attr, e *ErrorEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("error_layer", e.Layer.String()),
		slog.String("error_msg", e.Message),
		slog.String("error_context", e.Context),
	)
	if e.Code != nil {
		attrs = append(attrs, slog.Int("error_code", *e.Code))
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
