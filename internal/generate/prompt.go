package generate

import "fmt"

// systemPrompt fixes the persona for the synchronous completion path. The
// agent path receives only the composed user prompt.
const systemPrompt = "You are a cybersecurity documentation specialist. Generate structured, professional control documentation in the exact format specified."

// BuildPrompt combines the template with one control row's fields into the
// full request prompt.
func BuildPrompt(template, title, description string) string {
	return fmt.Sprintf(
		"%s\n\nTitle: %s\n\nDescription: %s\n\nPlease generate the formatted output according to the format specified above.",
		template, title, description,
	)
}
