// Package agent routes device tool calls from the cloud agent to local
// capabilities and sends exactly one structured reply per call.
package agent

import "strings"

// ToolPrefix is the common prefix of raw device tool names.
const ToolPrefix = "thinkar_device_tool_"

// Tool is a device tool the agent can call.
type Tool int

const (
	ToolUnknown Tool = iota
	ToolVolume
	ToolBrightness
	ToolScreenMode
	ToolDND
	ToolBattery
	ToolTakeAllPhoto
	ToolTranslationPage
	ToolSportsWidget
	ToolNewsWidget
	ToolWeatherWidget
	ToolStockTicker
	ToolHealthWidget
	ToolVersion
	ToolLanguage
	ToolTakeVideo
	ToolStreamPage
	ToolTeleprompter
	ToolPOIWidget
	ToolNavigationPage
	ToolCompassPage
)

type toolInfo struct {
	raw   string // suffix after ToolPrefix
	reply string // name used in replies
	title string // name used in reply messages
}

var tools = map[Tool]toolInfo{
	ToolVolume:          {"volume", "volume", "Volume"},
	ToolBrightness:      {"brightness", "brightness", "Brightness"},
	ToolScreenMode:      {"screen_mode", "screenMode", "ScreenMode"},
	ToolDND:             {"dnd", "dnd", "Dnd"},
	ToolBattery:         {"battery", "battery", "Battery"},
	ToolTakeAllPhoto:    {"page_take_All_photo", "takeAllPhoto", "TakeAllPhoto"},
	ToolTranslationPage: {"page_translation", "translationPage", "TranslationPage"},
	ToolSportsWidget:    {"widget_sports", "sportsWidget", "SportsWidget"},
	ToolNewsWidget:      {"widget_news", "newsWidget", "NewsWidget"},
	ToolWeatherWidget:   {"widget_weather", "weatherWidget", "WeatherWidget"},
	ToolStockTicker:     {"widget_stock_ticker", "stockTicker", "StockTicker"},
	ToolHealthWidget:    {"widget_health", "healthWidget", "HealthWidget"},
	ToolVersion:         {"version", "version", "Version"},
	ToolLanguage:        {"language", "language", "Language"},
	ToolTakeVideo:       {"page_take_vid", "takeVideo", "TakeVideo"},
	ToolStreamPage:      {"page_start_streaming", "streamPage", "StreamPage"},
	ToolTeleprompter:    {"page_teleprompter", "teleprompter", "Teleprompter"},
	ToolPOIWidget:       {"widget_point_of_interest", "poiWidget", "PoiWidget"},
	ToolNavigationPage:  {"page_navigation", "navigationPage", "NavigationPage"},
	ToolCompassPage:     {"page_compass", "compassPage", "CompassPage"},
}

var toolsByRaw = func() map[string]Tool {
	m := make(map[string]Tool, len(tools))
	for t, info := range tools {
		m[ToolPrefix+info.raw] = t
	}
	return m
}()

// ParseTool maps a raw tool name to a Tool. Unrecognised names are ToolUnknown.
func ParseTool(raw string) Tool {
	if t, ok := toolsByRaw[raw]; ok {
		return t
	}
	return ToolUnknown
}

// Raw returns the full tool name the agent uses.
func (t Tool) Raw() string {
	if info, ok := tools[t]; ok {
		return ToolPrefix + info.raw
	}
	return ""
}

// ReplyName returns the tool name carried in replies.
func (t Tool) ReplyName() string {
	if info, ok := tools[t]; ok {
		return info.reply
	}
	return "unknown"
}

func (t Tool) String() string {
	if info, ok := tools[t]; ok {
		return info.title
	}
	return "Unknown"
}

// Operation is the get/set verb of settings tools.
type Operation string

const (
	OperationNone Operation = ""
	OperationGet  Operation = "get"
	OperationSet  Operation = "set"
)

// ParseOperation matches "get" or "set", ignoring case.
func ParseOperation(raw string) (Operation, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "get":
		return OperationGet, true
	case "set":
		return OperationSet, true
	default:
		return OperationNone, false
	}
}

// toolSpec is the validation applied before a handler runs.
type toolSpec struct {
	operations []Operation // non-empty for settings tools
	setParam   string      // required for set
	replies    bool        // the agent waits for a reply
}

var toolTable = map[Tool]toolSpec{
	ToolVolume:         {operations: []Operation{OperationGet, OperationSet}, setParam: "level", replies: true},
	ToolBrightness:     {operations: []Operation{OperationGet, OperationSet}, setParam: "level", replies: true},
	ToolScreenMode:     {operations: []Operation{OperationGet, OperationSet}, setParam: "mode", replies: true},
	ToolDND:            {operations: []Operation{OperationGet, OperationSet}, setParam: "enabled", replies: true},
	ToolBattery:        {operations: []Operation{OperationGet}, replies: true},
	ToolLanguage:       {operations: []Operation{OperationGet, OperationSet}, setParam: "language", replies: true},
	ToolVersion:        {replies: true},
	ToolNavigationPage: {replies: true},
}

func (s toolSpec) allows(op Operation) bool {
	for _, o := range s.operations {
		if o == op {
			return true
		}
	}
	return false
}

// RepliesTo reports whether the agent expects a reply for the tool.
func RepliesTo(t Tool) bool {
	return toolTable[t].replies
}
