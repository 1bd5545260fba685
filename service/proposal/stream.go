package proposal

import (
	"context"
	"time"
	"tender-agent-backend/service/outline"
)

type EventType string

const (
	EventChapterStart    EventType = "chapter_start"
	EventContentChunk    EventType = "content_chunk"
	EventSubsectionStart EventType = "subsection_start"
	EventSubsectionEnd   EventType = "subsection_end"
	EventChapterEnd      EventType = "chapter_end"
	EventCompleted       EventType = "completed"
)

// Event 流式生成事件。章节内事件严格有序，章节间按编号顺序。
type Event struct {
	Type       EventType `json:"type"`
	Chapter    string    `json:"chapter,omitempty"`
	Subsection string    `json:"subsection,omitempty"`
	Content    string    `json:"content,omitempty"`
	Proposal   *Proposal `json:"proposal,omitempty"`
}

// AssembleStream 逐章顺序生成并推送事件。
// 每章严格按 chapter_start → content_chunk* → (小节循环) → chapter_end 发出，
// 全部完成后发 completed 携带组装结果并关闭通道。
func (a *Assembler) AssembleStream(ctx context.Context, o *outline.Outline, analysis *outline.Analysis) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		emit := func(e Event) bool {
			select {
			case events <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		p := &Proposal{
			Title:       o.Title,
			Chapters:    o.Chapters,
			GeneratedAt: time.Now(),
		}
		if p.Chapters == nil {
			p.Chapters = []*outline.Chapter{}
		}

		for _, ch := range p.Chapters {
			if !emit(Event{Type: EventChapterStart, Chapter: ch.Number}) {
				return
			}

			ch.Content = a.generateChapter(ctx, ch, analysis, func(chunk string) {
				emit(Event{Type: EventContentChunk, Chapter: ch.Number, Content: chunk})
			})

			for _, sub := range ch.Subsections {
				if !emit(Event{Type: EventSubsectionStart, Chapter: ch.Number, Subsection: sub.Number}) {
					return
				}
				sub.Content = a.generateChapter(ctx, sub, analysis, func(chunk string) {
					emit(Event{Type: EventContentChunk, Chapter: ch.Number, Subsection: sub.Number, Content: chunk})
				})
				if !emit(Event{Type: EventSubsectionEnd, Chapter: ch.Number, Subsection: sub.Number}) {
					return
				}
			}

			if !emit(Event{Type: EventChapterEnd, Chapter: ch.Number}) {
				return
			}
		}

		emit(Event{Type: EventCompleted, Proposal: p})
	}()

	return events
}
