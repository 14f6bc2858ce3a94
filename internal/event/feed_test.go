package event_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/bookshelf/internal/event"
)

func Test_Feed_Delivers_To_Subscribers_In_Order_When_Sent(t *testing.T) {
	t.Parallel()

	var feed event.Feed[int]

	var got []string

	feed.Subscribe(func(v int) { got = append(got, "a") })
	feed.Subscribe(func(v int) { got = append(got, "b") })

	feed.Send(1)

	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("delivery order mismatch (-want +got):\n%s", diff)
	}
}

func Test_Subscription_Close_Stops_Delivery_And_Is_Idempotent(t *testing.T) {
	t.Parallel()

	var feed event.Feed[string]

	count := 0
	sub := feed.Subscribe(func(string) { count++ })

	feed.Send("x")
	sub.Close()
	sub.Close()
	feed.Send("y")

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	if feed.Len() != 0 {
		t.Fatalf("Len = %d, want 0", feed.Len())
	}

	var nilSub *event.Subscription
	nilSub.Close()
}

func Test_Feed_Skips_Handler_Closed_During_Delivery(t *testing.T) {
	t.Parallel()

	var feed event.Feed[int]

	var second *event.Subscription

	calls := 0

	feed.Subscribe(func(int) { second.Close() })
	second = feed.Subscribe(func(int) { calls++ })

	feed.Send(1)

	if calls != 0 {
		t.Fatalf("closed handler was called %d times", calls)
	}
}

func Test_Group_Close_Releases_All_Subscriptions(t *testing.T) {
	t.Parallel()

	var (
		ints  event.Feed[int]
		strs  event.Feed[string]
		group event.Group
	)

	group.Add(
		ints.Subscribe(func(int) {}),
		strs.Subscribe(func(string) {}),
	)

	if group.Len() != 2 {
		t.Fatalf("group Len = %d, want 2", group.Len())
	}

	group.Close()

	if ints.Len() != 0 || strs.Len() != 0 {
		t.Fatalf("feeds still have subscribers: ints=%d strs=%d", ints.Len(), strs.Len())
	}

	if group.Len() != 0 {
		t.Fatalf("group not emptied: %d", group.Len())
	}
}
