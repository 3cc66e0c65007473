package service

import (
	"fmt"
	"strings"

	"docqa-go/internal/model"
)

// RefusalText 是上下文不足时的固定回答。
const RefusalText = "I don't have enough information to answer that question."

// MedicalRefusalText 用于超出文档范围的医疗建议类问题。
const MedicalRefusalText = RefusalText + " Please consult a healthcare provider."

const systemPromptTemplate = `You are an assistant specializing in providing information.

Your knowledge is STRICTLY limited to the information provided in the context below.
If asked about something not explicitly covered in this context, respond ONLY with "%s"

When answering:
1. Be extremely concise - provide short, direct answers using only necessary words
2. Be accurate and factual, citing ONLY information from the provided context
3. NEVER make up information or hallucinate details not explicitly in the context
4. Do not provide speculative answers or assumptions
5. If multiple contradictory pieces of information exist, acknowledge this
6. If asked about medical advice beyond the device information, respond with "%s"
7. NEVER begin your answers with phrases like "Based on the provided context," or "According to the information provided," - just give the answer directly as if you're speaking to a human in a natural conversation

Context information:
%s
`

// buildContextText 用空行连接检索到的分块文本。
func buildContextText(chunks []model.RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

func buildSystemPrompt(contextText string) string {
	return fmt.Sprintf(systemPromptTemplate, RefusalText, MedicalRefusalText, contextText)
}
