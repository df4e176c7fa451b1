package service

import (
	"encoding/json"
	"strings"
)

// InviteRequest 调用方提交的单条邀请；role 与 roleId 至少给一个（HTTP 层校验）
type InviteRequest struct {
	Email  string          `json:"email"`
	Role   string          `json:"role,omitempty"`
	RoleID string          `json:"roleId,omitempty"`
	UnitID string          `json:"unitId,omitempty"`
	Meta   json.RawMessage `json:"meta,omitempty"`
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// DedupKey email|role|roleId|unitId，email 不区分大小写
func DedupKey(r InviteRequest) string {
	return strings.Join([]string{
		normalizeEmail(r.Email),
		// 用提交时的 role，不按 roleId 解析；同一角色的两种写法在落库时按 already_invited 跳过
		strings.ToLower(strings.TrimSpace(r.Role)),
		r.RoleID,
		r.UnitID,
	}, "|")
}

// DedupeInvites 按 DedupKey 去重，保留首次出现的顺序
func DedupeInvites(items []InviteRequest) []InviteRequest {
	seen := make(map[string]struct{}, len(items))
	out := make([]InviteRequest, 0, len(items))
	for _, it := range items {
		k := DedupKey(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
