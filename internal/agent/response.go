package agent

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome carried in a reply.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Response is the structured reply sent back to the agent.
type Response struct {
	Tool      Tool
	Status    Status
	Operation Operation
	Data      any
	Message   string
}

type wireResponse struct {
	Tool      string    `json:"tool"`
	Status    Status    `json:"status"`
	Operation Operation `json:"operation,omitempty"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// MarshalJSON encodes the reply in the agent's wire shape.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponse{
		Tool:      r.Tool.ReplyName(),
		Status:    r.Status,
		Operation: r.Operation,
		Data:      r.Data,
		Message:   r.Message,
	})
}

// OK reports whether the reply is a success.
func (r Response) OK() bool { return r.Status == StatusOK }

type VolumeData struct {
	Level int `json:"level" yaml:"level"`
}

type BrightnessData struct {
	Level int `json:"level" yaml:"level"`
}

type ScreenModeData struct {
	Mode string `json:"mode" yaml:"mode"`
}

type DNDData struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

type BatteryData struct {
	Level      int  `json:"level" yaml:"level"`
	IsCharging bool `json:"isCharging" yaml:"isCharging"`
}

type LanguageData struct {
	Language string `json:"language" yaml:"language"`
}

// MessageOnly is the data of replies that carry only text.
type MessageOnly struct {
	Message string `json:"message" yaml:"message"`
}

func success(t Tool, op Operation, data any) Response {
	return Response{Tool: t, Status: StatusOK, Operation: op, Data: data}
}

func failure(t Tool, op Operation, msg string) Response {
	return Response{Tool: t, Status: StatusError, Operation: op, Message: msg}
}

func VolumeGet(level int) Response {
	return success(ToolVolume, OperationGet, VolumeData{Level: level})
}

func BrightnessGet(level int) Response {
	return success(ToolBrightness, OperationGet, BrightnessData{Level: level})
}

func ScreenModeGet(mode string) Response {
	return success(ToolScreenMode, OperationGet, ScreenModeData{Mode: mode})
}

func DNDGet(enabled bool) Response {
	return success(ToolDND, OperationGet, DNDData{Enabled: enabled})
}

func BatteryGet(level int, charging bool) Response {
	return success(ToolBattery, OperationGet, BatteryData{Level: level, IsCharging: charging})
}

func LanguageGet(lang string) Response {
	return success(ToolLanguage, OperationGet, LanguageData{Language: lang})
}

// SetOK acknowledges a successful set.
func SetOK(t Tool) Response {
	return success(t, OperationSet, nil)
}

// Done reports that an action tool ran.
func Done(t Tool) Response {
	return DoneWith(t, "")
}

// DoneWith is Done with a custom note. An empty note uses the default message.
func DoneWith(t Tool, note string) Response {
	if note == "" {
		note = fmt.Sprintf("tool %s executed successfully on the client.", t)
	}
	return success(t, OperationNone, MessageOnly{Message: note})
}

func MissingOperation(t Tool) Response {
	return failure(t, OperationNone, fmt.Sprintf("Missing 'operation' for %s", t))
}

func UnsupportedOperation(t Tool, op string) Response {
	return failure(t, OperationNone, fmt.Sprintf("Unsupported operation '%s' for %s", op, t))
}

func MissingParam(t Tool, op Operation, param string) Response {
	return failure(t, op, fmt.Sprintf("Missing required parameter '%s'", param))
}

func InvalidValue(t Tool, op Operation, param, reason string) Response {
	return failure(t, op, fmt.Sprintf("Invalid value for '%s': %s", param, reason))
}

// Failed reports that the device could not perform action.
func Failed(t Tool, op Operation, action string) Response {
	return failure(t, op, "Failed to "+action)
}
