// Package chatprefix 解析游戏聊天行 "⇨" 之前的前缀：<公会> [权限] 昵称 后缀
package chatprefix

import (
	"strings"
	"unicode"
)

// Prefix 前缀解析结果，字段为 nil 表示缺失
// 权限标签与昵称是必需的，任一缺失时四个字段全部为 nil
type Prefix struct {
	Clan      *string
	Privilege *string
	Nickname  *string
	Suffix    *string
}

// Parsed 是否成功匹配前缀语法
func (p Prefix) Parsed() bool {
	return p.Nickname != nil
}

// Parse 按固定语法解析前缀，不做大小写或空白之外的任何规范化：
//
//  1. 去掉开头连续的非单词字符（'<'、'['、'{' 除外），再去掉首尾空白
//  2. 可选公会标签 <clan>，后接任意空白
//  3. 必需权限标签 [priv] 或 {priv}，后接至少一个空白
//  4. 必需昵称：下一个不含空白的片段
//  5. 可选后缀：昵称之后空白以外的全部剩余文本（不跨行）
func Parse(raw string) Prefix {
	s := strings.TrimSpace(strings.TrimLeftFunc(raw, isNoise))

	var clan *string
	if strings.HasPrefix(s, "<") {
		body, rest, ok := cutTag(s, '<', '>')
		if !ok {
			return Prefix{}
		}
		clan = &body
		s = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}

	if s == "" {
		return Prefix{}
	}
	var closer byte
	switch s[0] {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return Prefix{}
	}
	privilege, rest, ok := cutTag(s, s[0], closer)
	if !ok {
		return Prefix{}
	}

	afterSpace := strings.TrimLeftFunc(rest, unicode.IsSpace)
	if len(afterSpace) == len(rest) || afterSpace == "" {
		return Prefix{}
	}

	nickname := afterSpace
	var suffix *string
	if i := strings.IndexFunc(afterSpace, unicode.IsSpace); i >= 0 {
		nickname = afterSpace[:i]
		tail := strings.TrimLeftFunc(afterSpace[i:], unicode.IsSpace)
		if strings.ContainsRune(tail, '\n') {
			return Prefix{}
		}
		suffix = &tail
	}

	return Prefix{
		Clan:      clan,
		Privilege: &privilege,
		Nickname:  &nickname,
		Suffix:    suffix,
	}
}

// cutTag 读取 s 开头以 opener/closer 包围的非空标签，标签内容不允许再出现 opener 或 closer
func cutTag(s string, opener, closer byte) (body, rest string, ok bool) {
	end := strings.IndexAny(s[1:], string([]byte{opener, closer}))
	if end <= 0 || s[1+end] != closer {
		return "", "", false
	}
	return s[1 : 1+end], s[2+end:], true
}

func isNoise(r rune) bool {
	if r == '<' || r == '[' || r == '{' || r == '_' {
		return false
	}
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
