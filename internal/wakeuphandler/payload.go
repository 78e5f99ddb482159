package wakeuphandler

import "encoding/json"

type cacheCleanupPayload struct {
	ActorID string `json:"actorId"`
}

func actorIDFromPayload(raw []byte) (string, bool) {
	var p cacheCleanupPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ActorID == "" {
		return "", false
	}
	return p.ActorID, true
}
