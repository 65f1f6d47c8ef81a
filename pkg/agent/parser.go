package agent

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// toolCallMarker matches [TOOL_CALL:name:{json}] embedded in model text. The
// function name carries no colons; the JSON object may span lines.
var toolCallMarker = regexp.MustCompile(`(?s)\[TOOL_CALL:([^:]+):(\{.*?\})\]`)

// toolCallLoose matches markers whose argument payload is not a well-formed
// JSON object, so they can degrade to empty-argument calls instead of being
// dropped.
var toolCallLoose = regexp.MustCompile(`\[TOOL_CALL:([^:\]]+):([^\]]*)\]`)

var blankRuns = regexp.MustCompile(`\n\s*\n`)

// ParsedCall is one tool invocation extracted from model text.
type ParsedCall struct {
	Name string
	Args map[string]interface{}
}

type positionedCall struct {
	pos  int
	call ParsedCall
}

// ParseToolCalls extracts tool-call markers from a model response in the
// order they appear. Markers whose JSON does not parse degrade to an
// empty-argument call instead of being dropped.
func ParseToolCalls(response string) []ParsedCall {
	var found []positionedCall
	covered := make([][2]int, 0)

	for _, m := range toolCallMarker.FindAllStringSubmatchIndex(response, -1) {
		name := response[m[2]:m[3]]
		raw := strings.NewReplacer("\n", "", "\r", "").Replace(strings.TrimSpace(response[m[4]:m[5]]))

		args := map[string]interface{}{}
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			args = map[string]interface{}{}
		}
		found = append(found, positionedCall{pos: m[0], call: ParsedCall{Name: name, Args: args}})
		covered = append(covered, [2]int{m[0], m[1]})
	}

	// Markers the strict pattern rejected still name a tool; run those with
	// empty arguments.
	for _, m := range toolCallLoose.FindAllStringSubmatchIndex(response, -1) {
		if overlaps(covered, m[0]) {
			continue
		}
		name := response[m[2]:m[3]]
		found = append(found, positionedCall{pos: m[0], call: ParsedCall{Name: name, Args: map[string]interface{}{}}})
	}

	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	calls := make([]ParsedCall, 0, len(found))
	for _, f := range found {
		calls = append(calls, f.call)
	}
	return calls
}

func overlaps(ranges [][2]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// StripToolCalls removes every tool-call marker from a response, leaving the
// explanatory text. The result never contains marker syntax; applying it
// twice is a no-op.
func StripToolCalls(response string) string {
	clean := response
	// Removing a marker can splice its surroundings into a new well-formed
	// marker, so strip to a fixpoint.
	for {
		next := toolCallMarker.ReplaceAllString(clean, "")
		next = toolCallLoose.ReplaceAllString(next, "")
		if next == clean {
			break
		}
		clean = next
	}
	clean = blankRuns.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(clean)
}
