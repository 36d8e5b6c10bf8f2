package resource

import (
	"fmt"
	"html/template"
	"reflect"
)

// Slots are the per-state renderers used by Render. Any nil slot falls back
// to a default presentation.
type Slots[T any] struct {
	Loading func() template.HTML
	Error   func(err error, retryURL string) template.HTML
	Ready   func(T) (template.HTML, error)
	Empty   func() template.HTML
	IsEmpty func(T) bool
	// Fallback marks a failed load as served in fallback mode.
	Fallback func() template.HTML

	RetryURL string
}

func Render[T any](snap Snapshot[T], slots Slots[T]) template.HTML {
	switch snap.State {
	case StateIdle, StateLoading:
		if slots.Loading != nil {
			return slots.Loading()
		}
		return DefaultLoading()
	case StateError:
		out := renderError(snap.Err, slots)
		if snap.IsUsingFallback {
			out += fallbackHint(slots)
		}
		return out
	}

	isEmpty := slots.IsEmpty
	if isEmpty == nil {
		isEmpty = defaultIsEmpty[T]
	}

	if !snap.HasData || isEmpty(snap.Data) {
		if slots.Empty != nil {
			return slots.Empty()
		}
		return DefaultEmpty()
	}

	if slots.Ready == nil {
		return template.HTML(template.HTMLEscapeString(fmt.Sprint(snap.Data)))
	}

	out, err := slots.Ready(snap.Data)
	if err != nil {
		return renderError(err, slots)
	}

	return out
}

func renderError[T any](err error, slots Slots[T]) template.HTML {
	if slots.Error != nil {
		return slots.Error(err, slots.RetryURL)
	}
	return DefaultError(err, slots.RetryURL)
}

func fallbackHint[T any](slots Slots[T]) template.HTML {
	if slots.Fallback != nil {
		return slots.Fallback()
	}
	return DefaultFallbackHint()
}

func DefaultFallbackHint() template.HTML {
	return `<p class="fallback-hint" role="status">已切換為離線備援模式，顯示內容可能不是最新資料。</p>`
}

func DefaultLoading() template.HTML {
	return `<div class="loading" role="status"><span class="spinner"></span>載入中...</div>`
}

func DefaultEmpty() template.HTML {
	return `<div class="empty-state">目前沒有資料</div>`
}

func DefaultError(err error, retryURL string) template.HTML {
	msg := "發生未知錯誤"
	if err != nil {
		msg = err.Error()
	}

	out := `<div class="alert alert-error" role="alert"><p>` + template.HTMLEscapeString(msg) + `</p>`
	if retryURL != "" {
		out += `<a class="btn btn-secondary" href="` + template.HTMLEscapeString(retryURL) + `">重試</a>`
	}
	out += `</div>`

	return template.HTML(out)
}

func defaultIsEmpty[T any](data T) bool {
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		return true
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
