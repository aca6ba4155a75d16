package sheet

import "strings"

// Placeholders is the closed set of tokens recognized in sheet templates:
//   - amt: the number of messages ("all" when not limited)
//   - author: the user who gave the command
//   - members: the members a command applies to
//   - channel: the channel the command was invoked in
//   - guild: the guild the command was invoked in
//   - content: the content of some message, if any
//   - date: the date a message was written at
//   - new_channel: a channel besides the current one
//
// Any other {token} in a template is passed through literally. The format
// has no escaping mechanism, so a bare { or } outside these tokens is
// unsupported input, not a condition to detect.
var Placeholders = []string{
	"author",
	"guild",
	"channel",
	"content",
	"date",
	"amt",
	"new_channel",
	"members",
}

// Values maps placeholder names to their substitution text.
type Values map[string]string

// Render substitutes every occurrence of {name} in body for each recognized
// placeholder name. A recognized name missing from values substitutes the
// empty string; callers pass the full value set per call rather than
// tailoring a map to each template, so Render stays oblivious to which
// subset a given template actually references.
//
// Substitution is a single pass: placeholder tokens arriving inside a
// value, like a message whose content mentions {date}, stay literal.
func Render(body string, values Values) string {
	pairs := make([]string, 0, 2*len(Placeholders))
	for _, name := range Placeholders {
		pairs = append(pairs, "{"+name+"}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(body)
}
