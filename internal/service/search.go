package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"Datametry/internal/config"
	"Datametry/internal/repository"

	"github.com/sirupsen/logrus"
)

var (
	// ErrSearchTermTooLong 搜索词超过长度上限
	ErrSearchTermTooLong = errors.New("search term too long")
	// ErrNegativeSeconds 回溯秒数为负
	ErrNegativeSeconds = errors.New("seconds must not be negative")
)

// unknownNickname 匿名玩家的展示名
const unknownNickname = "unknown"

// SearchRequest 消息搜索请求
type SearchRequest struct {
	SearchTerm string  `json:"search_term"`
	Seconds    *int    `json:"seconds"`  // 回溯秒数，缺省时取默认值，0 表示空窗口
	Nickname   *string `json:"nickname"` // 为空时不过滤
}

// SearchResult 搜索结果，每条格式为 "[YYYY-MM-DD HH:MM:SS] nickname: message"
type SearchResult struct {
	Matches []string `json:"matches"`
	Count   int      `json:"count"`
}

// SearchService 消息搜索
type SearchService struct {
	repo           repository.MessageRepository
	maxTermLength  int
	defaultSeconds int
	loc            *time.Location
	logger         *logrus.Logger
	now            func() time.Time
}

// NewSearchService 创建 SearchService
func NewSearchService(repo repository.MessageRepository, cfg config.SearchConfig, logger *logrus.Logger) (*SearchService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &SearchService{
		repo:           repo,
		maxTermLength:  cfg.MaxTermLength,
		defaultSeconds: cfg.DefaultSeconds,
		loc:            loc,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Search 在 [now-seconds, now] 窗口内按子串（大小写不敏感）与可选昵称搜索，按时间升序
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if utf8.RuneCountInString(req.SearchTerm) > s.maxTermLength {
		return nil, ErrSearchTermTooLong
	}

	seconds := s.defaultSeconds
	if req.Seconds != nil {
		if *req.Seconds < 0 {
			return nil, ErrNegativeSeconds
		}
		seconds = *req.Seconds
	}
	filter := repository.MessageFilter{
		Since: s.now().UTC().Add(-time.Duration(seconds) * time.Second),
		Term:  req.SearchTerm,
	}
	if req.Nickname != nil && *req.Nickname != "" {
		filter.Nickname = req.Nickname
	}

	views, err := s.repo.SearchMessages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("搜索消息失败: %w", err)
	}

	matches := make([]string, 0, len(views))
	for _, v := range views {
		nickname := unknownNickname
		if v.Nickname != nil {
			nickname = *v.Nickname
		}
		matches = append(matches, fmt.Sprintf("[%s] %s: %s",
			v.Timestamp.In(s.loc).Format(time.DateTime), nickname, v.Text))
	}
	return &SearchResult{Matches: matches, Count: len(matches)}, nil
}
