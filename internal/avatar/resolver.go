// Package avatar sources, stores and removes user avatar images.
//
// An avatar is either uploaded directly or resolved for a new user from a
// chain of third-party providers. Provider and storage failures during
// resolution never escape: ResolveForNewUser reports them as an unresolved
// Resolution and the caller picks a default.
package avatar

import (
	"authserver/internal/config"
	entity "authserver/internal/entity/db"
	"authserver/internal/metrics"
	"authserver/internal/storage"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultFolder      = "avatars"
	defaultHTTPTimeout = 5 * time.Second
	defaultMaxBytes    = 5 << 20
)

// Options configures a Resolver.
type Options struct {
	// Folder is the storage namespace every avatar lives under.
	Folder string
	// StagingDir holds fetched images until they are uploaded. Empty means os.TempDir().
	StagingDir   string
	GravatarURL  string
	UIAvatarsURL string
	// HTTPTimeout bounds each outbound provider request.
	HTTPTimeout time.Duration
	// MaxBytes caps uploaded and fetched images.
	MaxBytes   int64
	HTTPClient *http.Client
	Metrics    *metrics.Avatar
}

// OptionsFromConfig maps the avatar settings of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Folder:       cfg.AvatarFolder,
		StagingDir:   cfg.AvatarStagingDir,
		GravatarURL:  cfg.AvatarGravatarURL,
		UIAvatarsURL: cfg.AvatarUIAvatarsURL,
		HTTPTimeout:  cfg.AvatarHTTPTimeout,
		MaxBytes:     cfg.AvatarMaxBytes,
	}
}

// Resolution is the result of ResolveForNewUser. The zero value is unresolved.
type Resolution struct {
	Ref    string
	Source string
}

// Resolved reports whether an avatar was stored.
func (r Resolution) Resolved() bool {
	return r.Ref != ""
}

// Resolver decides where a user's avatar comes from and stores it.
type Resolver struct {
	store     storage.Storage
	folder    string
	staging   string
	timeout   time.Duration
	maxBytes  int64
	client    *http.Client
	metrics   *metrics.Avatar
	providers []provider
}

// NewResolver builds a Resolver storing avatars in store.
func NewResolver(store storage.Storage, opts Options) *Resolver {
	folder := strings.Trim(strings.TrimSpace(opts.Folder), "/")
	if folder == "" {
		folder = defaultFolder
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	var providers []provider
	if base := strings.TrimSpace(opts.GravatarURL); base != "" {
		providers = append(providers, gravatarProvider{base: base})
	}
	if base := strings.TrimSpace(opts.UIAvatarsURL); base != "" {
		providers = append(providers, uiAvatarsProvider{base: base})
	}

	return &Resolver{
		store:     store,
		folder:    folder,
		staging:   strings.TrimSpace(opts.StagingDir),
		timeout:   timeout,
		maxBytes:  maxBytes,
		client:    client,
		metrics:   opts.Metrics,
		providers: providers,
	}
}

// URLFor returns the public URL of an avatar reference. It performs no I/O.
func (r *Resolver) URLFor(ref string) string {
	return r.store.URLFor(r.objectKey(ref))
}

// ResolveForNewUser looks the user up at each provider in turn and stores the
// first image found as {id}.jpg. A provider whose existence check fails or
// reports no image hands over to the next one; a failure after an image was
// found ends resolution.
func (r *Resolver) ResolveForNewUser(ctx context.Context, user *entity.User) Resolution {
	if !user.Persisted() {
		return Resolution{}
	}

	for _, p := range r.providers {
		log := logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"provider": p.name(),
		})

		target, ok := p.locate(user)
		if !ok {
			r.metrics.Resolution(p.name(), metrics.OutcomeNotFound)
			log.Debug("provider has no lookup key for user")
			continue
		}

		found, err := r.probe(ctx, target)
		if err != nil {
			r.metrics.Resolution(p.name(), metrics.OutcomeError)
			log.WithError(err).Warn("avatar existence check failed")
			continue
		}
		if !found {
			r.metrics.Resolution(p.name(), metrics.OutcomeNotFound)
			log.Info("no avatar at provider")
			continue
		}

		ref, err := r.fetchAndStore(ctx, user, target)
		if err != nil {
			r.metrics.Resolution(p.name(), metrics.OutcomeError)
			log.WithError(err).Warn("failed to store provider avatar")
			return Resolution{}
		}

		r.metrics.Resolution(p.name(), metrics.OutcomeSuccess)
		log.WithField("ref", ref).Info("avatar resolved")
		return Resolution{Ref: ref, Source: p.name()}
	}

	return Resolution{}
}

// Remove deletes the stored {id}.jpg object. Failures are logged only.
func (r *Resolver) Remove(ctx context.Context, user *entity.User) {
	if !user.Persisted() {
		return
	}
	key := r.objectKey(fmt.Sprintf("%d.jpg", user.ID))
	if err := r.store.Delete(ctx, key); err != nil {
		r.metrics.Removal(metrics.OutcomeError)
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": user.ID,
			"key":     key,
		}).Warn("failed to delete avatar")
		return
	}
	r.metrics.Removal(metrics.OutcomeSuccess)
}

func (r *Resolver) objectKey(ref string) string {
	return path.Join(r.folder, strings.TrimLeft(strings.TrimSpace(ref), "/"))
}
