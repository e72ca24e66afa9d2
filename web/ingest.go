package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudbill/cloudbill/domain/usage"
)

// intervalPayload is one collected state interval on the wire. A missing
// end marks the interval as still open at collection time.
type intervalPayload struct {
	InstanceID   string `json:"instance_id"`
	InstanceName string `json:"instance_name"`
	FlavorID     string `json:"flavor_id"`
	FlavorName   string `json:"flavor_name"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	Begin        string `json:"begin"`
	End          string `json:"end,omitempty"`
}

func (p intervalPayload) toInterval(i int) (usage.Interval, error) {
	field := func(name string) string {
		return fmt.Sprintf("intervals[%d].%s", i, name)
	}

	if p.InstanceID == "" {
		return usage.Interval{}, usage.ValidationError{Field: field("instance_id"), Reason: "required"}
	}
	if p.FlavorName == "" {
		return usage.Interval{}, usage.ValidationError{Field: field("flavor_name"), Reason: "required"}
	}
	if p.UserID == "" {
		return usage.Interval{}, usage.ValidationError{Field: field("user_id"), Reason: "required"}
	}

	begin, err := time.Parse(time.RFC3339, p.Begin)
	if err != nil {
		return usage.Interval{}, usage.ValidationError{Field: field("begin"), Reason: "expected RFC3339"}
	}

	iv := usage.Interval{
		InstanceID:   p.InstanceID,
		InstanceName: p.InstanceName,
		FlavorID:     p.FlavorID,
		FlavorName:   p.FlavorName,
		UserID:       p.UserID,
		Status:       usage.Status(p.Status),
		Begin:        begin,
	}
	if p.End != "" {
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return usage.Interval{}, usage.ValidationError{Field: field("end"), Reason: "expected RFC3339"}
		}
		if end.Before(begin) {
			return usage.Interval{}, usage.ValidationError{Field: field("end"), Reason: "before begin"}
		}
		iv.End = &end
	}
	return iv, nil
}

// PostIntervals appends collected state intervals. The collector guarantees
// per-instance chronological order; unknown statuses are stored as-is and
// simply never consume.
func (h *Handler) PostIntervals(w http.ResponseWriter, r *http.Request) {
	var payload []intervalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: expected a JSON array of intervals")
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "no intervals given")
		return
	}

	intervals := make([]usage.Interval, 0, len(payload))
	for i, p := range payload {
		iv, err := p.toInterval(i)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		intervals = append(intervals, iv)
	}

	if err := h.usage.RecordIntervals(r.Context(), intervals); err != nil {
		h.logger.Error().Err(err).Int("count", len(intervals)).Msg("interval ingestion failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.metrics != nil {
		h.metrics.IntervalsIngested.Add(float64(len(intervals)))
	}

	writeJSON(w, http.StatusCreated, map[string]int{"recorded": len(intervals)})
}
