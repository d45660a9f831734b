package service

import (
	"context"
	"regexp"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
)

var siteInfoKey = regexp.MustCompile(`^[a-z0-9_.-]{1,80}$`)

// SiteInfoService serves public key/value settings to clients.
type SiteInfoService interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key string, req dto.SetSiteInfoRequest, actorID *uint) error
}

type siteInfoService struct {
	repo  repository.SiteInfoRepository
	audit AuditSink
}

func NewSiteInfoService(repo repository.SiteInfoRepository, audit AuditSink) SiteInfoService {
	if audit == nil {
		audit = LogAuditSink{}
	}
	return &siteInfoService{repo: repo, audit: audit}
}

func (s *siteInfoService) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *siteInfoService) Set(ctx context.Context, key string, req dto.SetSiteInfoRequest, actorID *uint) error {
	if !siteInfoKey.MatchString(key) {
		return invalid("invalid key %q", key)
	}
	item := &model.SiteInfo{Key: key, Value: req.Value, Description: req.Description}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return err
	}
	k := key
	s.audit.Record(ctx, AuditEntry{
		ActorID:  actorID,
		Action:   ActionSiteInfoUpdated,
		TargetID: &k,
		Details:  map[string]any{"value": req.Value},
		IP:       ClientIP(ctx),
		At:       time.Now(),
	})
	return nil
}
