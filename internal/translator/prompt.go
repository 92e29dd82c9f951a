package translator

import "strings"

const systemPromptTemplate = `You are a professional translator of scientific documents written in LaTeX.
Translate the LaTeX fragment given by the user from <lang_in> to <lang_out>.

Rules:
1. Translate only natural-language text. Keep every LaTeX command, environment, math expression and brace exactly as it is in the input.
2. Do not add commands, citations, labels or references that are not in the input.
3. Placeholders of the form <<<COMMENT_n>>> stand for comments. Copy them unchanged and keep the line break that follows them.
4. Keep the line structure of the input.
5. Output only the translated fragment, without explanations or code fences.`

const grammarPreamble = `

The output must be derivable from the following grammar. It lists every command, environment, group and math form the fragment may contain:

`

// BuildSystemPrompt fills the language slots of the system prompt and
// appends the constraint grammar when there is one.
func BuildSystemPrompt(source, target Language, grammarText string) string {
	prompt := strings.NewReplacer(
		"<lang_in>", source.DisplayName(),
		"<lang_out>", target.DisplayName(),
	).Replace(systemPromptTemplate)

	if grammarText != "" {
		prompt += grammarPreamble + grammarText
	}
	return prompt
}

// BuildUserPrompt wraps the fragment sent as the user message.
func BuildUserPrompt(fragment string) string {
	return fragment
}
