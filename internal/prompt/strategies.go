package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSchema is returned by Decode when a structured response is not
// a usable JSON commit object.
var ErrInvalidSchema = errors.New("invalid schema")

const textReminder = "" +
	"<reminder>\n" +
	"Now generate a commit message that describes the CODE CHANGES.\n" +
	"ONLY return a single markdown code block, NO OTHER PROSE!\n" +
	"```text\n" +
	"commit message goes here\n" +
	"```\n" +
	"</reminder>\n"

const textOutput = "Now only show your message, wrapped with a single markdown ```text codeblock! Do not provide any explanations or details.\n"

type zeroShot struct{}

func (zeroShot) Name() string { return "zero_shot" }
func (zeroShot) JSON() bool   { return false }

func (zeroShot) Build(diff, status string, opts Options) Prompt {
	return Prompt{
		System: rules(opts) + "\n" + textOutput,
		User:   userText(diff, status, opts, textReminder),
	}
}

func (zeroShot) Decode(raw string) (string, error) {
	msg, _ := ExtractOneTextCodeBlock(raw)
	return msg, nil
}

type example struct {
	diff    string
	message string
}

var examples = []example{
	{
		diff: "--- a/internal/cache/lru.go\n" +
			"+++ b/internal/cache/lru.go\n" +
			"@@ -40,6 +40,9 @@ func (c *LRU) Get(key string) (Value, bool) {\n" +
			"+\tif c == nil {\n" +
			"+\t\treturn nil, false\n" +
			"+\t}\n",
		message: "fix(cache): return a miss from Get on a nil LRU",
	},
	{
		diff: "--- a/README.md\n" +
			"+++ b/README.md\n" +
			"@@ -12,3 +12,7 @@\n" +
			"+## Configuration\n" +
			"+\n" +
			"+Settings are read from ~/.app.yaml.\n",
		message: "docs: describe the configuration file",
	},
	{
		diff: "--- a/api/handler.go\n" +
			"+++ b/api/handler.go\n" +
			"@@ -8,7 +8,7 @@\n" +
			"-func Register(mux *http.ServeMux) {\n" +
			"+func Register(mux *http.ServeMux, auth Authenticator) {\n",
		message: "feat(api)!: require an authenticator in Register\n\n" +
			"BREAKING CHANGE: callers must pass an Authenticator.",
	},
}

type fewShot struct{}

func (fewShot) Name() string { return "few_shot" }
func (fewShot) JSON() bool   { return false }

func (fewShot) Build(diff, status string, opts Options) Prompt {
	var b strings.Builder
	b.WriteString(rules(opts))
	b.WriteString("\n# EXAMPLES:\n")
	for _, ex := range examples {
		b.WriteString("<example>\n")
		b.WriteString("```diff\n" + strings.TrimRight(ex.diff, "\n") + "\n```\n")
		b.WriteString("```text\n" + ex.message + "\n```\n")
		b.WriteString("</example>\n")
	}
	b.WriteString("\n" + textOutput)

	return Prompt{
		System: b.String(),
		User:   userText(diff, status, opts, textReminder),
	}
}

func (fewShot) Decode(raw string) (string, error) {
	return zeroShot{}.Decode(raw)
}

type structured struct{}

func (structured) Name() string { return "structured" }
func (structured) JSON() bool   { return true }

func (structured) Build(diff, status string, opts Options) Prompt {
	system := rules(opts) + "\n" +
		"Respond with a single JSON object and nothing else:\n" +
		"{\"type\": \"fix\", \"scope\": \"\", \"breaking\": false, \"description\": \"...\", \"body\": \"\"}\n" +
		"Use an empty string for scope and body when they do not apply.\n"

	reminder := "" +
		"<reminder>\n" +
		"Now describe the CODE CHANGES as one JSON object.\n" +
		"ONLY return the JSON object, NO OTHER PROSE!\n" +
		"</reminder>\n"

	return Prompt{System: system, User: userText(diff, status, opts, reminder)}
}

type commitObject struct {
	Type        string `json:"type"`
	Scope       string `json:"scope"`
	Breaking    bool   `json:"breaking"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// Decode parses the JSON object and renders it as a commit message.
// "subject" is accepted as an alias for "description".
func (structured) Decode(raw string) (string, error) {
	var obj commitObject
	if err := json.Unmarshal([]byte(StripFences(raw)), &obj); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	desc := strings.TrimSpace(obj.Description)
	if desc == "" {
		desc = strings.TrimSpace(obj.Subject)
	}
	typ := strings.TrimSpace(obj.Type)
	if typ == "" || desc == "" {
		return "", fmt.Errorf("%w: type and description are required", ErrInvalidSchema)
	}

	var b strings.Builder
	b.WriteString(typ)
	if scope := strings.TrimSpace(obj.Scope); scope != "" {
		b.WriteString("(" + scope + ")")
	}
	if obj.Breaking {
		b.WriteString("!")
	}
	b.WriteString(": " + desc)
	if body := strings.TrimSpace(obj.Body); body != "" {
		b.WriteString("\n\n" + body)
	}
	return b.String(), nil
}
