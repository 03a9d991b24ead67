package textutil

import (
	"regexp"
	"strings"
)

// Artifact is one tagged block of a perform-task response:
//
//	<artifact id="..." title="...">
//	  <action type="file" filePath="/app/src/main.ts">...</action>
//	  <action type="shell" shellPath="/app">npm install</action>
//	</artifact>
type Artifact struct {
	ID      string
	Title   string
	Actions []ArtifactAction
}

// ArtifactAction is a raw action element. Target is the filePath or
// shellPath attribute, whichever is present.
type ArtifactAction struct {
	Type    string
	Target  string
	Content string
}

var (
	artifactPattern = regexp.MustCompile(`(?is)<artifact\b([^>]*)>(.*?)</artifact>`)
	actionPattern   = regexp.MustCompile(`(?is)<action\b([^>]*)>(.*?)</action>`)
	attrPattern     = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*"([^"]*)"`)
)

// ParseArtifacts extracts every artifact and its actions, in document
// order. Malformed or unclosed elements are skipped.
func ParseArtifacts(content string) []Artifact {
	var out []Artifact
	for _, m := range artifactPattern.FindAllStringSubmatch(content, -1) {
		attrs := parseAttributes(m[1])
		artifact := Artifact{ID: attrs["id"], Title: attrs["title"]}
		for _, a := range actionPattern.FindAllStringSubmatch(m[2], -1) {
			actionAttrs := parseAttributes(a[1])
			target := actionAttrs["filepath"]
			if target == "" {
				target = actionAttrs["shellpath"]
			}
			artifact.Actions = append(artifact.Actions, ArtifactAction{
				Type:    actionAttrs["type"],
				Target:  target,
				Content: a[2],
			})
		}
		out = append(out, artifact)
	}
	return out
}

// ParseActions flattens the actions of every artifact in content.
func ParseActions(content string) []ArtifactAction {
	var out []ArtifactAction
	for _, a := range ParseArtifacts(content) {
		out = append(out, a.Actions...)
	}
	return out
}

func parseAttributes(s string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		attrs[strings.ToLower(m[1])] = m[2]
	}
	return attrs
}
