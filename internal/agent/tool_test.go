package agent

import "testing"

func TestParseTool(t *testing.T) {
	tests := []struct {
		raw      string
		expected Tool
	}{
		{"thinkar_device_tool_volume", ToolVolume},
		{"thinkar_device_tool_screen_mode", ToolScreenMode},
		{"thinkar_device_tool_page_take_All_photo", ToolTakeAllPhoto},
		{"thinkar_device_tool_widget_point_of_interest", ToolPOIWidget},
		{"thinkar_device_tool_page_navigation", ToolNavigationPage},
		{"thinkar_device_tool_page_take_all_photo", ToolUnknown},
		{"volume", ToolUnknown},
		{"", ToolUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if result := ParseTool(tc.raw); result != tc.expected {
				t.Errorf("ParseTool(%q) = %v, want %v", tc.raw, result, tc.expected)
			}
		})
	}
}

func TestTool_RoundTrip(t *testing.T) {
	for tool := range tools {
		if result := ParseTool(tool.Raw()); result != tool {
			t.Errorf("ParseTool(%q) = %v, want %v", tool.Raw(), result, tool)
		}
	}
}

func TestTool_Names(t *testing.T) {
	tests := []struct {
		tool  Tool
		reply string
		title string
	}{
		{ToolScreenMode, "screenMode", "ScreenMode"},
		{ToolDND, "dnd", "Dnd"},
		{ToolPOIWidget, "poiWidget", "PoiWidget"},
		{ToolStockTicker, "stockTicker", "StockTicker"},
		{ToolUnknown, "unknown", "Unknown"},
	}

	for _, tc := range tests {
		if result := tc.tool.ReplyName(); result != tc.reply {
			t.Errorf("%v.ReplyName() = %q, want %q", tc.tool, result, tc.reply)
		}
		if result := tc.tool.String(); result != tc.title {
			t.Errorf("Tool(%d).String() = %q, want %q", int(tc.tool), result, tc.title)
		}
	}
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		raw      string
		expected Operation
		ok       bool
	}{
		{"get", OperationGet, true},
		{"GET", OperationGet, true},
		{" Set ", OperationSet, true},
		{"toggle", OperationNone, false},
		{"", OperationNone, false},
	}

	for _, tc := range tests {
		result, ok := ParseOperation(tc.raw)
		if result != tc.expected || ok != tc.ok {
			t.Errorf("ParseOperation(%q) = %q, %v, want %q, %v", tc.raw, result, ok, tc.expected, tc.ok)
		}
	}
}

func TestRepliesTo(t *testing.T) {
	tests := []struct {
		tool     Tool
		expected bool
	}{
		{ToolVolume, true},
		{ToolBattery, true},
		{ToolNavigationPage, true},
		{ToolVersion, true},
		{ToolNewsWidget, false},
		{ToolTakeAllPhoto, false},
	}

	for _, tc := range tests {
		if result := RepliesTo(tc.tool); result != tc.expected {
			t.Errorf("RepliesTo(%v) = %v, want %v", tc.tool, result, tc.expected)
		}
	}
}
