package generation

import (
	"fmt"
	"strings"
)

// Summary is a previously published post the generator must not repeat.
type Summary struct {
	Summary string
	URL     string
}

const maxMetadataInput = 4000

const bodyPromptTemplate = `Act as %s.

%s

**Previous Post Context & Interlinking:**
Below this prompt, a list of previously generated posts may be provided, including their summary and URL. The main topic of this new post MUST be distinct from those summaries, but you can and should reference a previous post (using Markdown link format like [link text](URL)) when it provides relevant background or context for a point you are making. Only link where it genuinely adds value for the reader.

**Tone and Certainty Guidance:**
Focus on specific, niche, and practical insights grounded in the attached documents and current search results. If a detail is clearly stated as a finalized decision, a current standard, or a definite past event, present it confidently and factually. Refrain from tables, and from philosophical pieces about the future of the field; give readers the necessary information to make their own decisions rather than telling them what to do. Introduce yourself at the beginning of the post, but make the introduction specific to this post's content so no two posts open the same way.`

const bodyOutputFormat = `**Output Format:**
The output should be **only the blog post body formatted directly as GitHub Flavored Markdown**. Do not include preamble, title, or any text other than the Markdown content itself. Use standard Markdown syntax (e.g., # H1, ## H2, *, -, lists, **bold**, *italic*).`

const metadataPromptTemplate = `Analyze the following blog post content:

%s

Based only on the provided content, generate a JSON object containing the following metadata fields:
- title: A compelling and relevant title for the blog post (string).
- excerpt_page: A concise summary suitable for a blog listing page, approx. 1-2 sentences (string). This is also checked against future generations to avoid duplicates, so include as many facts about the post as you can. Max 160 characters.
- excerpt_featured: A slightly shorter, punchier excerpt suitable for a featured post section (string). Max 120 characters.
- reading_time: An estimated reading time in minutes (integer).
- image_description: A brief description (1-2 sentences) of an ideal featured image for this post, suitable for prompting an image generation model (string). Make it specific to this post. There should be absolutely no text or letters visible in the image.

Your response must be only the valid JSON object. Do not include any other text, explanation, or preamble.
Example JSON format:
{
  "title": "Example Blog Post Title",
  "excerpt_page": "This is a concise summary of the blog post content, suitable for listing pages.",
  "excerpt_featured": "Short, punchy excerpt for featured sections.",
  "reading_time": 5,
  "image_description": "A modern abstract illustration of data streams flowing between devices. There should be absolutely no text or letters visible."
}`

const linkedinPromptTemplate = `Analyze the following blog post content snippet:
--- START BLOG CONTENT SNIPPET ---
%s
--- END BLOG CONTENT SNIPPET ---

Based only on this blog post content, write a version that is 100 words shorter and change the wording slightly.
1. Introduce the post by mentioning that a new blog article is available, with a clear call to action directing readers to the full article using this exact URL: %s
   Both the introduction and the call to action should be relevant to the content of this specific post.
2. If you invite readers to ask follow-up questions, direct them to our chatbot by writing the placeholder [CHATBOT_URL] exactly where its link belongs.
3. The original blog post mentioned these related topics/articles with the following URLs:
%s
   If relevant to your summary and space permits, you may briefly mention any of these related topics and include its full raw URL. Do not use Markdown link formatting like [text](url).
4. **Output Format:** Generate only the plain text for the new, more concise version of the post. Ensure ALL URLs included in your response are full, raw URLs (e.g., https://www.example.com/article). Do not use Markdown link formatting.`

// buildBodyPrompt assembles the body-generation prompt from the configured
// persona and brief, the summaries of previous posts, and the output
// contract. withFiles switches the closing instruction to reference the
// attached documents.
func buildBodyPrompt(persona, brief string, prev []Summary, withFiles bool) string {
	base := fmt.Sprintf(bodyPromptTemplate, persona, brief)

	instruction := "Generate the full blog post content based on the instructions and context provided above."
	if withFiles {
		instruction = "Generate the full blog post content based on the instructions and context provided above AND in the attached files."
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n", base, formatSummaries(prev), instruction, bodyOutputFormat)
}

func buildMetadataPrompt(body string) string {
	return fmt.Sprintf(metadataPromptTemplate, truncate(body, maxMetadataInput))
}

func buildLinkedInPrompt(body, postURL string, interlinks []string) string {
	return fmt.Sprintf(linkedinPromptTemplate, body, postURL, formatInterlinks(interlinks))
}

func formatSummaries(prev []Summary) string {
	if len(prev) == 0 {
		return "\nNo previous posts to reference."
	}
	var sb strings.Builder
	sb.WriteString("\nPrevious Posts (Avoid repeating these specific topics; link if relevant):\n")
	for _, s := range prev {
		fmt.Fprintf(&sb, "  - Summary: %s (URL: %s)\n", s.Summary, s.URL)
	}
	return sb.String()
}

func formatInterlinks(links []string) string {
	if len(links) == 0 {
		return "None provided."
	}
	formatted := make([]string, 0, len(links))
	for _, link := range links {
		formatted = append(formatted, "- "+link)
	}
	return strings.Join(formatted, "\n")
}

// stripFences removes a wrapping markdown code fence from model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```markdown") {
		s = s[len("```markdown"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	return s
}

// cleanJSON trims a wrapping ```json fence from model output and slices the
// response down to its outermost object, discarding any surrounding prose.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
