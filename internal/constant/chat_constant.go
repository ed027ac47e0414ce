package constant

import "strings"

const (
	// Generation parameters sent on every chat completion. They are part
	// of the cache fingerprint, so changing them invalidates cached
	// responses.
	ChatTemperature = 0.5
	ChatTopP        = 0.9
	ChatMaxTokens   = 4096

	// Flat token charge for an image generation; image endpoints report
	// no usage, so the demo meter uses this estimate.
	ImageGenerationTokenCharge = 100
)

// ChatSystemPromptV1 shapes assistant answers for the chat surface.
const ChatSystemPromptV1 = `You are a helpful AI assistant with expertise in analyzing data, files, and providing insights.

Formatting requirements:
- Use clear section headers and bullet points to structure answers.
- Format code blocks with proper syntax highlighting.
- Use bold text for key terms and include actionable recommendations.
- Present tabular data as tables.
- End with suggested next steps when applicable.

Your responses should be informative, well structured, and easy to understand.`

// imageGenerationModels are the model families served by the image
// endpoint instead of chat completions.
var imageGenerationModels = []string{
	"dall-e-3", "dall-e-2", "dall-e",
	"midjourney", "stable-diffusion",
	"sdxl", "kandinsky", "deepfloyd",
}

// IsImageGenerationModel reports whether model routes to image generation.
func IsImageGenerationModel(model string) bool {
	model = strings.ToLower(model)
	for _, m := range imageGenerationModels {
		if strings.Contains(model, m) {
			return true
		}
	}
	return false
}
