package pipeline

import (
	"fmt"

	"docqa-go/internal/model"
)

// isBreak 判断一个字符能否作为分块的切分点：句末标点或换行。
func isBreak(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// ValidateChunkParams 检查分块参数：targetSize 必须为正，0 <= overlap < targetSize。
func ValidateChunkParams(targetSize, overlap int) error {
	if targetSize <= 0 {
		return model.ValidationError("chunk", fmt.Errorf("target size must be positive, got %d", targetSize))
	}
	if overlap < 0 || overlap >= targetSize {
		return model.ValidationError("chunk", fmt.Errorf("overlap must be in [0, %d), got %d", targetSize, overlap))
	}
	return nil
}

// ChunkText 将文本按字符（rune）贪心地切分成带重叠的分块。
//
// 每一步从游标处取最多 targetSize 个字符；若未到文本末尾，则向前寻找最近的句末标点或换行，
// 该位置须越过本片的中点且越过上一次的切分点，找到则在其后切开（切分符保留在本块中）。
// 除第一块外，取片前先把游标回退 overlap 个字符（最小为 0），因此相邻分块最多重叠 overlap 个字符。
func ChunkText(text string, targetSize, overlap int) ([]string, error) {
	if err := ValidateChunkParams(targetSize, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var chunks []string
	cursor := 0
	for cursor < n {
		start := cursor
		if len(chunks) > 0 {
			start = cursor - overlap
			if start < 0 {
				start = 0
			}
		}
		end := start + targetSize
		if end > n {
			end = n
		}
		if end < n {
			mid := start + targetSize/2
			for i := end - 1; i > mid && i >= cursor; i-- {
				if isBreak(runes[i]) {
					end = i + 1
					break
				}
			}
		}
		chunks = append(chunks, string(runes[start:end]))
		cursor = end
	}
	return chunks, nil
}
