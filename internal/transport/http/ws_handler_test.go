package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/LHYWilliam/roomchat/internal/proto"
)

func wsURL(env *testEnv, token string) string {
	return strings.Replace(env.ts.URL, "http", "ws", 1) + "/chat?token=" + token
}

// dialChat registers chat state and credentials for the user and opens a
// session.
func dialChat(ctx context.Context, t *testing.T, env *testEnv, user string) *websocket.Conn {
	t.Helper()

	if err := env.reg.RegisterUser(user); err != nil {
		t.Fatalf("register chat user %s: %v", user, err)
	}
	conn, _, err := websocket.Dial(ctx, wsURL(env, env.token(t, user)), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", user, err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendDirective(ctx context.Context, t *testing.T, conn *websocket.Conn, d proto.Directive) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, d); err != nil {
		t.Fatalf("write directive: %v", err)
	}
}

func readDelivery(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.Delivery {
	t.Helper()

	var delivery proto.Delivery
	if err := wsjson.Read(ctx, conn, &delivery); err != nil {
		t.Fatalf("read delivery: %v", err)
	}
	return delivery
}

func TestChatFlowBetweenTwoClients(t *testing.T) {
	env := newTestEnv(t)
	if err := env.reg.CreateRoom("general"); err != nil {
		t.Fatalf("create room: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialChat(ctx, t, env, "alice")
	bob := dialChat(ctx, t, env, "bob")

	room := "general"
	sendDirective(ctx, t, alice, proto.Directive{Join: &room})
	if got := readDelivery(ctx, t, alice); got.Message != "alice joined general" {
		t.Fatalf("unexpected join echo: %+v", got)
	}

	sendDirective(ctx, t, bob, proto.Directive{Join: &room})
	if got := readDelivery(ctx, t, alice); got.Message != "bob joined general" {
		t.Fatalf("unexpected notice for alice: %+v", got)
	}
	if got := readDelivery(ctx, t, bob); got.Message != "bob joined general" {
		t.Fatalf("unexpected notice for bob: %+v", got)
	}

	sendDirective(ctx, t, alice, proto.Directive{Content: &proto.Delivery{
		Room:    proto.RoomRef{Name: room},
		Message: "hi",
	}})
	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		got := readDelivery(ctx, t, conn)
		if got.Room.Name != "general" || got.From == nil || *got.From != "alice" || got.Message != "hi" {
			t.Fatalf("unexpected delivery for %s: %+v", name, got)
		}
	}

	sendDirective(ctx, t, alice, proto.Directive{Leave: &room})
	if got := readDelivery(ctx, t, bob); got.Message != "alice left general" {
		t.Fatalf("unexpected leave notice: %+v", got)
	}
}

func TestSecondConnectionRefused(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := env.reg.RegisterUser("alice"); err != nil {
		t.Fatalf("register chat user: %v", err)
	}
	token := env.token(t, "alice")

	first, _, err := websocket.Dial(ctx, wsURL(env, token), nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close(websocket.StatusNormalClosure, "done")

	second, resp, err := websocket.Dial(ctx, wsURL(env, token), nil)
	if err == nil {
		second.Close(websocket.StatusNormalClosure, "unexpected")
		t.Fatalf("expected second dial to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second connection, got %+v", resp)
	}

	// The first session is untouched.
	if !env.reg.Connected("alice") {
		t.Fatalf("first session lost its presence entry")
	}
}

func TestNonMemberContentIsSilentlyDropped(t *testing.T) {
	env := newTestEnv(t)
	if err := env.reg.CreateRoom("general"); err != nil {
		t.Fatalf("create room: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialChat(ctx, t, env, "alice")
	carol := dialChat(ctx, t, env, "carol")

	room := "general"
	sendDirective(ctx, t, alice, proto.Directive{Join: &room})
	readDelivery(ctx, t, alice)

	// carol never joined; her message must reach nobody and produce no
	// error frame.
	sendDirective(ctx, t, carol, proto.Directive{Content: &proto.Delivery{
		Room:    proto.RoomRef{Name: room},
		Message: "injected",
	}})

	readCtx, readCancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer readCancel()
	var delivery proto.Delivery
	if err := wsjson.Read(readCtx, alice, &delivery); err == nil {
		t.Fatalf("member received injected message: %+v", delivery)
	}
}

func TestMalformedDirectiveKeepsSessionAlive(t *testing.T) {
	env := newTestEnv(t)
	if err := env.reg.CreateRoom("general"); err != nil {
		t.Fatalf("create room: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialChat(ctx, t, env, "alice")

	if err := alice.Write(ctx, websocket.MessageText, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := alice.Write(ctx, websocket.MessageText, []byte(`{"Shout": "general"}`)); err != nil {
		t.Fatalf("write unknown directive: %v", err)
	}

	// The session survives and still processes valid directives.
	room := "general"
	sendDirective(ctx, t, alice, proto.Directive{Join: &room})
	if got := readDelivery(ctx, t, alice); got.Message != "alice joined general" {
		t.Fatalf("unexpected delivery: %+v", got)
	}
}

func TestDisconnectCleansUpMemberships(t *testing.T) {
	env := newTestEnv(t)
	for _, room := range []string{"alpha", "beta"} {
		if err := env.reg.CreateRoom(room); err != nil {
			t.Fatalf("create %s: %v", room, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialChat(ctx, t, env, "alice")
	bob := dialChat(ctx, t, env, "bob")

	alpha, beta := "alpha", "beta"
	sendDirective(ctx, t, alice, proto.Directive{Join: &alpha})
	readDelivery(ctx, t, alice)
	sendDirective(ctx, t, alice, proto.Directive{Join: &beta})
	readDelivery(ctx, t, alice)
	sendDirective(ctx, t, bob, proto.Directive{Join: &alpha})
	readDelivery(ctx, t, bob)
	readDelivery(ctx, t, alice)

	if err := alice.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		t.Fatalf("close alice: %v", err)
	}

	if got := readDelivery(ctx, t, bob); got.Message != "alice left alpha" {
		t.Fatalf("unexpected notice: %+v", got)
	}

	// Cleanup removed alice from both rooms and released presence.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rooms, err := env.reg.RoomsOf("alice")
		if err == nil && len(rooms) == 0 && !env.reg.Connected("alice") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cleanup incomplete: rooms=%v connected=%v err=%v", rooms, env.reg.Connected("alice"), err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	members, err := env.reg.MembersOf("beta")
	if err != nil || len(members) != 0 {
		t.Fatalf("beta still lists alice: %v %v", members, err)
	}
}
