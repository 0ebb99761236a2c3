// Package broker dispatches inbound messages to the translation proxy, the
// lyric resolver and the translation registry, and turns every outcome into
// exactly one response.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dasmlab/kashi/pkg/failure"
	"github.com/dasmlab/kashi/pkg/lyrics"
	"github.com/dasmlab/kashi/pkg/metrics"
	"github.com/dasmlab/kashi/pkg/registry"
	"github.com/dasmlab/kashi/pkg/translate"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LyricsResolver resolves lyric text for a track.
type LyricsResolver interface {
	Resolve(ctx context.Context, q lyrics.Query) (lyrics.Result, error)
}

// TranslationRegistry stores and serves translated lyrics.
type TranslationRegistry interface {
	Get(ctx context.Context, source registry.Source, langs []string) (registry.Translations, error)
	Register(ctx context.Context, source registry.Source, lang, lyrics string) (registry.Registration, error)
}

// Dispatcher routes messages to their operation. It holds no per-request
// state, so one Dispatcher serves any number of concurrent messages.
type Dispatcher struct {
	Translator translate.Translator
	Lyrics     LyricsResolver
	Registry   TranslationRegistry
	Logger     *logrus.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(translator translate.Translator, resolver LyricsResolver, reg TranslationRegistry, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		Translator: translator,
		Lyrics:     resolver,
		Registry:   reg,
		Logger:     logger,
	}
}

// Dispatch handles req in its own goroutine and calls respond exactly once
// with the result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, respond func(Response)) {
	go func() {
		respond(d.Handle(ctx, req))
	}()
}

// Handle processes one message and returns its response. Failures never
// escape: they become a response with success=false and an error message.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (resp Response) {
	startTime := time.Now()
	done := metrics.MessageStarted()
	defer done()

	log := d.Logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"type":       req.Type,
	})
	log.Debug("Message received")

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Message handler panicked")
			resp = Status{Error: fmt.Sprintf("internal error: %v", r)}
		}

		label := string(req.Type)
		if !req.Type.Known() {
			label = "unknown"
		}
		metrics.RecordMessage(label, resp.Succeeded(), time.Since(startTime))
		log.WithFields(logrus.Fields{
			"success":     resp.Succeeded(),
			"duration_ms": time.Since(startTime).Milliseconds(),
		}).Info("Message handled")
	}()

	switch req.Type {
	case TypeTranslate:
		return d.translate(ctx, log, req)
	case TypeGetLyrics:
		return d.getLyrics(ctx, log, req)
	case TypeGetTranslation:
		return d.getTranslation(ctx, log, req)
	case TypeRegisterTranslation:
		return d.registerTranslation(ctx, log, req)
	default:
		log.Warn("Unknown request type")
		return Status{Error: fmt.Sprintf("unknown request type %q", req.Type)}
	}
}

// failed logs err and converts it into a failed status.
func failed(log *logrus.Entry, err error) Status {
	log.WithError(err).WithField("kind", failure.KindOf(err).String()).Error("Operation failed")
	return Status{Error: failure.Message(err)}
}

func (d *Dispatcher) translate(ctx context.Context, log *logrus.Entry, req Request) Response {
	var p TranslatePayload
	if err := decodePayload(req, &p); err != nil {
		return TranslateResponse{Status: failed(log, err)}
	}

	translations, err := d.Translator.Translate(ctx, translate.Request{
		Text:       p.Text,
		APIKey:     p.APIKey,
		TargetLang: p.TargetLang,
	})
	if err != nil {
		return TranslateResponse{Status: failed(log, err)}
	}
	return TranslateResponse{Status: Status{Success: true}, Translations: translations}
}

func (d *Dispatcher) getLyrics(ctx context.Context, log *logrus.Entry, req Request) Response {
	var p LyricsPayload
	if err := decodePayload(req, &p); err != nil {
		return LyricsResponse{Status: failed(log, err)}
	}

	log.WithFields(logrus.Fields{
		"track":       p.Track,
		"artist":      p.Artist,
		"youtube_url": p.YoutubeURL,
		"video_id":    p.VideoID,
	}).Info("GET_LYRICS")

	res, err := d.Lyrics.Resolve(ctx, lyrics.Query{
		Track:      p.Track,
		Artist:     p.Artist,
		YoutubeURL: p.YoutubeURL,
		VideoID:    p.VideoID,
	})
	if err != nil {
		return LyricsResponse{Status: failed(log, err)}
	}

	log.WithField("source", res.Source).Debug("Lyrics resolved")
	return LyricsResponse{
		Status:       Status{Success: res.Found},
		Lyrics:       res.Lyrics,
		DynamicLines: res.DynamicLines,
	}
}

func (d *Dispatcher) getTranslation(ctx context.Context, log *logrus.Entry, req Request) Response {
	var p TranslationPayload
	if err := decodePayload(req, &p); err != nil {
		return TranslationResponse{Status: failed(log, err)}
	}

	source := registry.Source{YoutubeURL: p.YoutubeURL, VideoID: p.VideoID}
	tr, err := d.Registry.Get(ctx, source, registry.Requested(p.Lang, p.Langs))
	if err != nil {
		return TranslationResponse{Status: failed(log, err)}
	}
	return TranslationResponse{
		Status:  Status{Success: true},
		LrcMap:  tr.LrcMap,
		Missing: tr.Missing,
	}
}

func (d *Dispatcher) registerTranslation(ctx context.Context, log *logrus.Entry, req Request) Response {
	var p RegisterPayload
	if err := decodePayload(req, &p); err != nil {
		return RegisterResponse{Status: failed(log, err)}
	}

	source := registry.Source{YoutubeURL: p.YoutubeURL, VideoID: p.VideoID}
	reg, err := d.Registry.Register(ctx, source, p.Lang, p.Lyrics)
	if err != nil {
		return RegisterResponse{Status: failed(log, err), Raw: reg.Raw}
	}
	return RegisterResponse{Status: Status{Success: reg.OK}, Raw: reg.Raw}
}

// Encode renders a response as JSON.
func Encode(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}
