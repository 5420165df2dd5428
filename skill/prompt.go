package skill

import "strings"

// ComposePrompt renders the activated skills into an instruction suffix that
// is appended to every LLM node's base instruction. Empty input yields an
// empty string so skill-free runs get a no-op suffix. Skills are emitted in
// snapshot order (sorted by name).
func ComposePrompt(skills []Definition) string {
	if len(skills) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nActivated skills:\n")
	for _, s := range skills {
		b.WriteString("- ")
		b.WriteString(s.Name)
		if strings.TrimSpace(s.Description) != "" {
			b.WriteString(": ")
			b.WriteString(s.Description)
		}
		b.WriteString("\n")
		if strings.TrimSpace(s.Instruction) != "" {
			b.WriteString("  Instruction: ")
			b.WriteString(s.Instruction)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Names extracts the skill names in order.
func Names(skills []Definition) []string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return names
}
