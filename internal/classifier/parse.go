package classifier

import (
	"encoding/json"
	"strings"

	"github.com/LJTian/TrendPulse/internal/model"
)

// 外部服务返回的是可能夹带说明文字的松散文本，解析按三步走：
// 整体严格解析 → 提取首尾中括号之间的子串再解析 → 放弃返回 nil。
// 流程的其余部分只会看到解析成功的类型化数据。

func parseTopStories(content string) []model.TopStory {
	var stories []model.TopStory
	if ok := decodeArray(content, &stories); !ok {
		return nil
	}
	out := stories[:0]
	for _, s := range stories {
		if s.Topic == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func parseClassifications(content string) []model.ArticleClassification {
	var classifications []model.ArticleClassification
	if ok := decodeArray(content, &classifications); !ok {
		return nil
	}
	out := classifications[:0]
	for _, c := range classifications {
		if c.Title == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// decodeArray 返回是否解析成功；成功但数组为空也算成功
func decodeArray(content string, v any) bool {
	content = strings.TrimSpace(content)
	if json.Unmarshal([]byte(content), v) == nil {
		return true
	}
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(content[start:end+1]), v) == nil
}
