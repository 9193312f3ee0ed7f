package reasoner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseable marks a reply that does not have the expected structure.
var ErrUnparseable = errors.New("unparseable reasoning reply")

type ReplyTask struct {
	TaskID string `json:"task_id"`
	Start  string `json:"start"`
	End    string `json:"end,omitempty"`
}

type ReplyCandidate struct {
	Explanation string      `json:"explanation"`
	Tasks       []ReplyTask `json:"tasks"`
	Payload     *struct {
		Tasks []ReplyTask `json:"tasks"`
	} `json:"payload,omitempty"`
}

// Entries returns the candidate's tasks, accepting either a flat "tasks" list
// or one nested under "payload".
func (c ReplyCandidate) Entries() []ReplyTask {
	if len(c.Tasks) == 0 && c.Payload != nil {
		return c.Payload.Tasks
	}
	return c.Tasks
}

type Reply struct {
	Explanation string           `json:"explanation"`
	Reasoning   string           `json:"reasoning"`
	Candidates  []ReplyCandidate `json:"candidates"`
}

// ParseReply extracts the JSON object from raw model output. Code fences and
// prose around the object are ignored.
func ParseReply(raw string) (Reply, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return Reply{}, fmt.Errorf("%w: no JSON object", ErrUnparseable)
	}

	var reply Reply
	if err := json.Unmarshal([]byte(body[start:end+1]), &reply); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if len(reply.Candidates) == 0 {
		return Reply{}, fmt.Errorf("%w: no candidates", ErrUnparseable)
	}
	for i, c := range reply.Candidates {
		if len(c.Entries()) == 0 {
			return Reply{}, fmt.Errorf("%w: candidate %d has no tasks", ErrUnparseable, i)
		}
	}
	return reply, nil
}
