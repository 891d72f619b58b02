// Package poster runs the publish pipeline: select a post from the catalog,
// format it, send it to the channel and record the publication.
package poster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channelposter/internal/catalog"
	"channelposter/internal/config"
	"channelposter/internal/format"
	"channelposter/internal/storage"
	"channelposter/internal/transport"
	logx "channelposter/pkg/logx"
)

// CatalogSource returns the catalog for one run.
type CatalogSource func() (*catalog.Catalog, error)

// FileCatalog loads the catalog from path on every call.
func FileCatalog(path string) CatalogSource {
	return func() (*catalog.Catalog, error) { return catalog.Load(path) }
}

type Deps struct {
	Catalog CatalogSource
	Sender  transport.Sender
	// Store may be nil when recording is disabled.
	Store storage.Store
	Log   logx.Logger
	Rand  catalog.Rand
	// Now defaults to time.Now.
	Now func() time.Time
}

type Poster struct {
	cfg  config.Config
	deps Deps
	log  logx.Logger
}

func New(cfg config.Config, deps Deps) (*Poster, error) {
	if deps.Catalog == nil {
		return nil, errors.New("poster: catalog source is required")
	}
	if deps.Rand == nil {
		return nil, errors.New("poster: random source is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Poster{cfg: cfg, deps: deps, log: log}, nil
}

// Prepare picks and formats the post for this run without sending anything.
func (p *Poster) Prepare() (catalog.Selection, string, error) {
	c, err := p.deps.Catalog()
	if err != nil {
		return catalog.Selection{}, "", fmt.Errorf("load catalog: %w", err)
	}
	sel, err := catalog.Select(c, catalog.Criteria{
		Number: p.cfg.Posts.Number,
		Type:   p.cfg.Posts.Type,
	}, p.deps.Rand)
	if err != nil {
		return catalog.Selection{}, "", fmt.Errorf("select post: %w", err)
	}
	if sel.IndexIgnored {
		p.log.Warn("post number out of range; falling back to random selection",
			logx.String("post_number", p.cfg.Posts.Number), logx.Int("catalog_size", c.Len()))
	}
	return sel, format.Post(sel.Post.Content, p.deps.Rand), nil
}

// Publish runs the whole pipeline once.
func (p *Poster) Publish(ctx context.Context) Outcome {
	if p.deps.Sender == nil {
		return Failed(ConfigFailed, errors.New("poster: no sender configured"))
	}

	sel, msg, err := p.Prepare()
	if err != nil {
		p.log.Error("cannot prepare post", logx.Err(err))
		return Failed(ConfigFailed, err)
	}
	out := Outcome{Selection: sel, Message: msg}

	sctx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout())
	defer cancel()
	ref, err := p.deps.Sender.SendText(sctx, transport.ChatTarget{Chat: p.cfg.Telegram.ChannelID}, msg, &transport.SendOptions{
		ParseMode:      transport.ParseMarkdown,
		DisablePreview: false,
	})
	out.Ref = ref
	if err != nil && ref.MessageID == 0 {
		p.log.Error("error publishing post", logx.Int("post_id", sel.Post.ID), logx.Err(err))
		out.Kind, out.Err = SendFailed, err
		return out
	}
	if err != nil {
		err = fmt.Errorf("post partly delivered, message %d is public: %w", ref.MessageID, err)
		p.log.Error("post partly delivered; recording it anyway",
			logx.Int("post_id", sel.Post.ID), logx.Int("message_id", ref.MessageID), logx.Err(err))
		out.Entry = storage.NewEntry(p.deps.Now(), sel.Post.ID, sel.Post.Type, p.cfg.Telegram.ChannelName)
		if p.deps.Store != nil {
			if rerr := p.deps.Store.Append(ctx, out.Entry); rerr != nil {
				err = errors.Join(err, fmt.Errorf("record publication: %w", rerr))
			}
		}
		out.Kind, out.Err = PartiallySent, err
		return out
	}

	now := p.deps.Now()
	p.log.Info("post published",
		logx.Int("post_id", sel.Post.ID),
		logx.String("post_type", sel.Post.Type),
		logx.String("selected_by", string(sel.Method)),
		logx.Int("message_id", ref.MessageID),
		logx.Time("at", now))

	out.Entry = storage.NewEntry(now, sel.Post.ID, sel.Post.Type, p.cfg.Telegram.ChannelName)
	if p.deps.Store != nil {
		if err := p.deps.Store.Append(ctx, out.Entry); err != nil {
			p.log.Error("post sent but publication log not written", logx.Int("post_id", sel.Post.ID), logx.Err(err))
			out.Kind, out.Err = RecordFailed, err
			return out
		}
	}
	out.Kind = OK
	return out
}
