package ai

import (
	"fmt"
	"strings"
)

// CareerSystemPrompt frames the career-assistant tools.
const CareerSystemPrompt = "You are an expert career assistant. Provide clear, professional, concise output. " +
	"Use bullet points where helpful."

// EmailParseSystemPrompt frames the email classification call. The user
// prompt pins the exact JSON shape; this keeps the model in JSON mode.
const EmailParseSystemPrompt = `You are an expert at analyzing job application emails. Your task is to:
1. Classify the email type (confirmation, interview request, offer, rejection, etc.)
2. Extract key information (dates, deadlines, requirements)
3. Determine if action is required
4. Suggest the appropriate application status

Always respond in valid JSON format.`

func BuildTailorResumePrompt(resumeText, jobDescription, instructions string) string {
	return "Tailor the resume to the job description. Provide: \n" +
		"1) Tailored summary\n2) Key skills alignment\n3) Suggested bullet improvements\n" +
		fmt.Sprintf("\nResume:\n%s\n\nJob Description:\n%s%s", resumeText, jobDescription, extraInstructions(instructions))
}

func BuildCoverLetterPrompt(resumeText, jobDescription, tone, instructions string) string {
	toneLine := ""
	if tone = strings.TrimSpace(tone); tone != "" {
		toneLine = fmt.Sprintf("Tone: %s.", tone)
	}
	return fmt.Sprintf("Write a tailored cover letter (3-5 short paragraphs). %s\n", toneLine) +
		fmt.Sprintf("\nResume:\n%s\n\nJob Description:\n%s%s", resumeText, jobDescription, extraInstructions(instructions))
}

func BuildATSChecklistPrompt(resumeText, jobDescription, instructions string) string {
	return "Create an ATS checklist. Provide: \n" +
		"1) Missing keywords\n2) Matching keywords\n3) Top improvement actions (max 6)\n" +
		fmt.Sprintf("\nResume:\n%s\n\nJob Description:\n%s%s", resumeText, jobDescription, extraInstructions(instructions))
}

func extraInstructions(instructions string) string {
	if instructions = strings.TrimSpace(instructions); instructions == "" {
		return ""
	}
	return "\nAdditional instructions: " + instructions
}

func BuildEmailParsePrompt(emailContent, additionalContext, company, jobTitle string) string {
	contextLine := ""
	if company != "" || jobTitle != "" {
		if jobTitle == "" {
			jobTitle = "Position"
		}
		if company == "" {
			company = "Company"
		}
		contextLine = fmt.Sprintf("\nApplication Context: %s at %s", jobTitle, company)
	}
	if additionalContext != "" {
		contextLine += "\nAdditional Context: " + additionalContext
	}

	return fmt.Sprintf(`Analyze this job application email and extract structured information.

Email Content:
---
%s
---
%s

Respond with a JSON object containing:
{
  "event_type": "confirmation" | "interview_scheduled" | "interview_completed" | "assessment" | "offer" | "rejection" | "request" | "follow_up" | "other",
  "summary": "Brief 1-2 sentence summary of the email",
  "suggested_status": "saved" | "applied" | "interview" | "offer" | "rejected" | null,
  "confidence": 0.0-1.0 (how confident you are in the classification),
  "extracted_dates": [
    {"date": "YYYY-MM-DD", "time": "HH:MM" or null, "description": "what this date is for", "is_deadline": true/false}
  ],
  "key_details": ["list of important points from the email"],
  "next_steps": ["suggested actions for the applicant"],
  "action_required": true/false,
  "action_description": "what action is needed (if any)",
  "action_deadline": "YYYY-MM-DD" or null
}

Be precise with dates. If a date is mentioned, extract it. If time is mentioned, include it.
For interviews, always mark action_required as true.
For rejections, suggested_status should be "rejected".
For offers, suggested_status should be "offer".
`, emailContent, contextLine)
}
