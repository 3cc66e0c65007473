package model

// Source 是回答所引用的来源。
type Source struct {
	Title          string  `json:"title"`
	ArticleNumber  *int    `json:"article_number"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Equal 按完整元组比较两个来源。
func (s Source) Equal(o Source) bool {
	if s.Title != o.Title || s.RelevanceScore != o.RelevanceScore {
		return false
	}
	if s.ArticleNumber == nil || o.ArticleNumber == nil {
		return s.ArticleNumber == nil && o.ArticleNumber == nil
	}
	return *s.ArticleNumber == *o.ArticleNumber
}

// ChatResponse 是一次提问的返回结果。
type ChatResponse struct {
	Response  string   `json:"response"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}
