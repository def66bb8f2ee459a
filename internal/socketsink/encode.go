package socketsink

import (
	"time"

	"github.com/vk/flowgrid/internal/executor"
)

// Encode renders an event as a JSON-compatible map.
func Encode(ev executor.Event) map[string]any {
	body := map[string]any{
		"type": string(ev.Type),
		"time": ev.Time.UTC().Format(time.RFC3339Nano),
	}
	if ev.NodeID != "" {
		body["nodeId"] = ev.NodeID
		body["kind"] = string(ev.Kind)
	}
	if m := ev.Message; !m.IsZero() {
		body["message"] = map[string]any{
			"id":        m.ID(),
			"branchId":  m.BranchID(),
			"createdBy": m.CreatedBy(),
			"createdAt": m.CreatedAt().UnixMilli(),
			"parentIds": m.ParentIDs(),
			"path":      m.Path(),
			"payload":   m.Payload(),
		}
	}
	if len(ev.Findings) > 0 {
		findings := make([]map[string]any, 0, len(ev.Findings))
		for _, f := range ev.Findings {
			findings = append(findings, map[string]any{
				"severity": string(f.Severity),
				"code":     f.Code,
				"message":  f.Message,
				"nodeId":   f.NodeID,
			})
		}
		body["findings"] = findings
	}
	if ev.Err != nil {
		body["error"] = ev.Err.Error()
	}
	return body
}
