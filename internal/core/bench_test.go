package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

func benchmarkPublicSend(b *testing.B, recipients int) {
	st, err := sqlite.New(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	c := New(st, nil, WithSanitizer(nil))

	sender := NewClient("sender", "")
	c.Connect(sender)
	if err := c.Join(ctx, sender, "sender"); err != nil {
		b.Fatal(err)
	}
	go func() {
		for range sender.Events {
		}
	}()

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		cl := NewClient(fmt.Sprintf("c%d", i), "")
		c.Connect(cl)
		clients = append(clients, cl)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, cl := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(cl)
	}
	drain(target)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := c.Send(ctx, sender, "", SendRequest{Body: "payload"}); err != nil {
			b.Fatal(err)
		}
		<-target.Events
	}
	b.StopTimer()

	for _, cl := range clients {
		c.Disconnect(ctx, cl)
	}
	c.Disconnect(ctx, sender)
}

func BenchmarkPublicSend_10(b *testing.B)  { benchmarkPublicSend(b, 10) }
func BenchmarkPublicSend_100(b *testing.B) { benchmarkPublicSend(b, 100) }
func BenchmarkPublicSend_500(b *testing.B) { benchmarkPublicSend(b, 500) }
