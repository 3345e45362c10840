package agent

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Call is one tool invocation from the agent.
type Call struct {
	Tool  string
	Args  Args
	Reply *Reply
}

// DecodeCall parses a call of the form {"tool": "...", "args": {...}}.
// "name" and "arguments" are accepted as aliases.
func DecodeCall(data []byte, send ReplyFunc) (Call, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return Call{}, fmt.Errorf("invalid tool call: %w", err)
	}
	fields := s.GetFields()

	name := fields["tool"].GetStringValue()
	if name == "" {
		name = fields["name"].GetStringValue()
	}
	if name == "" {
		return Call{}, fmt.Errorf("invalid tool call: missing tool name")
	}

	args := fields["args"].GetStructValue()
	if args == nil {
		args = fields["arguments"].GetStructValue()
	}
	if args == nil {
		// Some agents send arguments as an encoded JSON string.
		if raw := fields["arguments"].GetStringValue(); raw != "" {
			parsed, err := ParseArgs([]byte(raw))
			if err != nil {
				return Call{}, err
			}
			return Call{Tool: name, Args: parsed, Reply: NewReply(send)}, nil
		}
		args = &structpb.Struct{}
	}

	return Call{Tool: name, Args: Args{s: args}, Reply: NewReply(send)}, nil
}
