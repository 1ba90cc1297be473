package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"Datametry/internal/chatprefix"
	"Datametry/internal/model"
	"Datametry/internal/repository"

	"github.com/sirupsen/logrus"
)

// Delimiter 聊天行中前缀与正文的分隔符
const Delimiter = "⇨"

// ErrMissingDelimiter 聊天行缺少分隔符
var ErrMissingDelimiter = errors.New("invalid message format: missing " + Delimiter + " separator")

// MessageService 聊天消息入库
type MessageService struct {
	repo   repository.MessageRepository
	logger *logrus.Logger
	now    func() time.Time
}

// NewMessageService 创建 MessageService
func NewMessageService(repo repository.MessageRepository, logger *logrus.Logger) *MessageService {
	return &MessageService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest 按分隔符拆分聊天行，解析前缀后在同一事务内写入玩家与消息，返回去掉首尾空白的正文
func (s *MessageService) Ingest(ctx context.Context, text string) (string, error) {
	prefix, body, ok := strings.Cut(text, Delimiter)
	if !ok {
		return "", ErrMissingDelimiter
	}
	body = strings.TrimSpace(body)

	p := chatprefix.Parse(prefix)
	player := &model.Player{
		Nickname:  p.Nickname,
		Privilege: p.Privilege,
		Clan:      p.Clan,
		Suffix:    p.Suffix,
	}
	if !p.Parsed() {
		s.logger.WithField("prefix", prefix).Debug("前缀未匹配，消息归入匿名玩家")
	}

	if _, err := s.repo.SaveMessage(ctx, player, body, s.now().UTC()); err != nil {
		return "", err
	}
	return body, nil
}
