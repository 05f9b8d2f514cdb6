package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/pkg/parser"
)

// FormatReply 按 redis-cli 的风格格式化 parser.Parse 返回的回复
func FormatReply(payload interface{}) string {
	var sb strings.Builder
	formatReply(&sb, payload, "")
	return sb.String()
}

func formatReply(sb *strings.Builder, payload interface{}, indent string) {
	switch v := payload.(type) {
	case nil:
		sb.WriteString("(nil)")
	case string:
		sb.WriteString(v)
	case parser.RespError:
		sb.WriteString("(error) ")
		sb.WriteString(v.Message)
	case int64:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(v, 10))
	case []byte:
		if v == nil {
			sb.WriteString("(nil)")
			return
		}
		sb.Write(resp.AppendQuoted(nil, v))
	case []interface{}:
		if v == nil {
			sb.WriteString("(nil)")
			return
		}
		if len(v) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(v)))
		for i, elem := range v {
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			sb.WriteString(prefix)
			// 嵌套数组的后续行和当前元素的内容对齐
			formatReply(sb, elem, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}
