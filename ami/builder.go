/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ami

import (
	"context"
	"encoding"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sufficit/go-ami/cache"
	"github.com/sufficit/go-ami/logger"
)

// Constructor builds a zero-valued, unpopulated instance of a registered
// event type. The builder populates it via the property binder.
type Constructor func() Event

// nonAlphaNum strips everything but letters and digits, for case- and
// punctuation-insensitive struct-field matching.
var nonAlphaNum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Builder discovers and caches event-type constructors, builds typed events
// from attribute maps, and deduplicates logging of unregistered event keys.
// It is process-wide and stateless with respect to any one connection.
type Builder struct {
	mu       sync.RWMutex
	registry map[string]Constructor

	unknown cache.Cache[string, bool]
	log     logger.Logger
}

// NewBuilder returns an event builder with an empty registry; the built-in
// catalog is added by events.Register (UnknownEvent's own key is never
// registered, it is the fallback).
func NewBuilder(ctx context.Context, log logger.Logger) *Builder {
	return &Builder{
		registry: make(map[string]Constructor),
		unknown:  cache.New[string, bool](ctx, 0),
		log:      log,
	}
}

// Register adds or replaces the constructor for the given normalized event
// key. This is the runtime extension point for user events
// (registerUserEventClass in the source system).
func (b *Builder) Register(key string, ctor Constructor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry[strings.ToLower(key)] = ctor
}

// lookup returns the constructor registered for key, if any.
func (b *Builder) lookup(key string) (Constructor, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ctor, ok := b.registry[key]
	return ctor, ok
}

// Build converts an attribute map known to carry an "event" header into a
// typed Event, or a generic UnknownEvent when no constructor is registered
// for its effective key. Returns (nil, false) only when the packet carries
// no "event" header at all.
func (b *Builder) Build(p *Packet) (Event, bool) {
	key, ok := EffectiveEventKey(p)
	if !ok {
		return nil, false
	}

	var ev Event

	if ctor, found := b.lookup(key); found {
		inst := ctor()
		bindProperties(inst, p)
		ev = inst
	} else {
		b.reportUnknown(key)
		ue := &UnknownEvent{BaseEvent: BaseEvent{Key: key, Attributes: make(map[string]string)}}
		for _, k := range p.Keys() {
			if v, got := p.Get(k); got {
				ue.Attributes[k] = v
			}
		}
		ev = ue
	}

	if re, isResp := ev.(ResponseEvent); isResp {
		if raw, hasID := p.ActionID(); hasID {
			internal, caller := SplitActionID(raw)
			re.SetActionID(internal, caller)
		}
	}

	return ev, true
}

// reportUnknown logs a previously-unseen key once (Info for user events,
// Warning otherwise, with a registration hint); later occurrences of the same
// key are not logged. The unknown-key set is the dedup cache.
func (b *Builder) reportUnknown(key string) {
	_, _, seen := b.unknown.Load(key)
	b.unknown.Store(key, true)

	if b.log == nil {
		return
	}

	if seen {
		return
	}

	if strings.HasPrefix(key, "user") {
		b.log.Info("ami: unregistered user event key, register it with Builder.Register", nil, key)
	} else {
		b.log.Warning("ami: unregistered event key, register it with Builder.Register", nil, key)
	}
}

// UnknownEvents returns every event key that has been reported as unknown so far.
func (b *Builder) UnknownEvents() []string {
	var keys []string
	b.unknown.Walk(func(k string, _ bool, _ time.Duration) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// ClearUnknownEvents empties the dedup set, re-arming the once-per-key log policy.
func (b *Builder) ClearUnknownEvents() {
	b.unknown.Clean()
}

// bindProperties assigns each packet attribute onto a writable, exported
// field of ev whose name matches the attribute key case- and
// punctuation-insensitively. Unmatched attributes land in the embedded
// BaseEvent's Attributes side dictionary, if present.
func bindProperties(ev Event, p *Packet) {
	v := reflect.ValueOf(ev)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	var base *BaseEvent
	if be, ok := ev.(interface{ baseEvent() *BaseEvent }); ok {
		base = be.baseEvent()
	}

	fieldByNormalizedName := make(map[string]reflect.Value)
	collectFields(elem, fieldByNormalizedName)

	for _, k := range p.Keys() {
		val, _ := p.Get(k)
		norm := strings.ToLower(nonAlphaNum.ReplaceAllString(k, ""))

		if fv, ok := fieldByNormalizedName[norm]; ok && fv.CanSet() {
			setFieldValue(fv, val)
			continue
		}

		if base != nil {
			if base.Attributes == nil {
				base.Attributes = make(map[string]string)
			}
			base.Attributes[k] = val
		}
	}
}

// collectFields walks a struct (including embedded BaseEvent) and records
// every settable field under its normalized name.
func collectFields(v reflect.Value, out map[string]reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)

		if sf.Anonymous && fv.Kind() == reflect.Struct {
			collectFields(fv, out)
			continue
		}

		if sf.PkgPath != "" {
			continue // unexported
		}

		norm := strings.ToLower(nonAlphaNum.ReplaceAllString(sf.Name, ""))
		out[norm] = fv
	}
}

// setFieldValue converts the wire string into the target field's type per
// the property-binder conversion rules: bools accept true/t/1/y/yes/on;
// enum-typed fields (anything implementing encoding.TextUnmarshaler) parse
// by name; lists split on comma; maps split on ';' then '='; other scalars
// use locale-invariant parsing.
func setFieldValue(fv reflect.Value, raw string) {
	if fv.CanAddr() {
		if tu, ok := fv.Addr().Interface().(encoding.TextUnmarshaler); ok {
			_ = tu.UnmarshalText([]byte(raw))
			return
		}
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		fv.SetBool(isTruthy(raw))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			fv.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
			fv.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			fv.SetFloat(n)
		}
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			out := reflect.MakeSlice(fv.Type(), len(parts), len(parts))
			for i, part := range parts {
				out.Index(i).SetString(strings.TrimSpace(part))
			}
			fv.Set(out)
		}
	case reflect.Map:
		setMapValue(fv, raw)
	}
}

// setMapValue implements the map conversion rule: entries split on ';',
// each entry's key/value split on the first '='. Only string-keyed,
// string-valued maps are populated; anything else is left untouched.
func setMapValue(fv reflect.Value, raw string) {
	t := fv.Type()
	if t.Key().Kind() != reflect.String || t.Elem().Kind() != reflect.String {
		return
	}

	out := reflect.MakeMap(t)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		out.SetMapIndex(reflect.ValueOf(strings.TrimSpace(k)).Convert(t.Key()), reflect.ValueOf(strings.TrimSpace(v)).Convert(t.Elem()))
	}
	fv.Set(out)
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "y", "yes", "on":
		return true
	default:
		return false
	}
}

// baseEvent lets bindProperties reach the embedded BaseEvent's side
// dictionary without a type switch over every concrete event type.
func (e *BaseEvent) baseEvent() *BaseEvent { return e }
