package eval

import "fmt"

// Judge call settings.
const (
	JudgeTemperature = 0.1
	JudgeMaxTokens   = 1024
	// judgeAttempts is the number of judge calls made before the verdict is
	// declared unparseable.
	judgeAttempts = 2
)

// JudgeSystemPrompt frames the judge model.
const JudgeSystemPrompt = `You are an impartial evaluator of AI assistant responses. You score how well a response serves the system instruction and the user prompt it was produced for. Be deterministic and concise. Reply with a single JSON object and nothing else.`

const judgePromptTemplate = `Evaluate the assistant response below.

[BEGIN DATA]
[System instruction]:
%s

[User prompt]:
%s

[Assistant response]:
%s
[END DATA]

Score each dimension from 0 to 100 using these anchors:
- coherence: 0 = incoherent or self-contradictory; 50 = understandable with gaps in flow; 100 = logically structured and easy to follow
- taskCompletion: 0 = does not address the prompt; 50 = partially answers it; 100 = fully accomplishes what the prompt asks
- instructionAdherence: 0 = ignores the system instruction; 50 = follows some constraints; 100 = follows every constraint in the system instruction
- efficiency: 0 = padded, repetitive or off-topic; 50 = some unnecessary content; 100 = as concise as possible without losing substance

Respond with JSON matching this schema:
{
  "coherence": <integer 0-100>,
  "taskCompletion": <integer 0-100>,
  "instructionAdherence": <integer 0-100>,
  "efficiency": <integer 0-100>,
  "explanation": "<at most three sentences justifying the scores>"
}
`

// BuildJudgePrompt embeds the test inputs and the response verbatim in the
// judge prompt.
func BuildJudgePrompt(instructions, prompt, response string) string {
	return fmt.Sprintf(judgePromptTemplate, instructions, prompt, response)
}
