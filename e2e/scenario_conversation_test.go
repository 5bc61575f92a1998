package e2e

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/suite"

	"pulsechat/auth"
	"pulsechat/conversation"
	"pulsechat/domain"
	"pulsechat/infrastructure/rest"
	"pulsechat/infrastructure/ws"
	"pulsechat/repositories"
)

type testConversationSuite struct {
	BasePlatformSuite
}

func TestConversationSuite(t *testing.T) {
	suite.Run(t, &testConversationSuite{})
}

func (s *testConversationSuite) SetupTest() {
	s.Platform = NewPlatform(nil)
}

func (s *testConversationSuite) TearDownTest() {
	s.Platform.Close()
}

func (s *testConversationSuite) TestFullConversationFlow() {
	at := time.Now().UTC().Add(-time.Hour)
	s.Platform.SeedHistory([]domain.Message{
		{ID: "h1", Sender: domain.NewSenderRef("customer-9"), Content: "hello, I have a question", CreatedAt: at},
		{ID: "h2", Sender: domain.NewSenderRef("agent-1"), Content: "sure, go ahead", CreatedAt: at.Add(time.Minute)},
	})

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	defer db.Close()
	cache := repositories.NewHistoryCache(db, slog.Default(), nil)

	// --- STEP 1: VIEWER IDENTITY ---
	s.StepHeader("Step 1: Resolve viewer from access token")
	token := s.SignToken("agent-1", "t1")
	viewer, err := auth.ViewerFromToken(token)
	s.Require().NoError(err)
	s.Require().Equal("agent-1", viewer.ID)

	// --- STEP 2: OPEN THE CONVERSATION ---
	s.StepHeader("Step 2: Open conversation, merge history and live")
	api := rest.NewChatAPI(slog.Default(), s.Platform.APIBaseURL(), token, 5*time.Second)
	dialer := ws.NewDialer(token)
	controller := conversation.NewController(
		slog.Default(), api, dialer, cache, s.Platform.WSBaseURL(), viewer)
	controller.SetOnUpdate(func() {})
	defer controller.Close()

	s.Require().NoError(controller.Open(context.Background(), "t1"))
	s.Require().Equal(s.Platform.SessionID(), controller.Session().ID)
	s.Eventually(func() bool {
		return len(controller.Feed()) == 2 && controller.Connected()
	}, "history should merge and the socket should open")

	feed := controller.Feed()
	s.Require().False(feed[0].IsMine)
	s.Require().True(feed[1].IsMine)
	s.Require().True(feed[1].IsGroupStart)

	// --- STEP 3: SEND AND COLLAPSE THE ECHO ---
	s.StepHeader("Step 3: Send a message, collapse the echoed frame")
	s.Require().NoError(controller.Send("of course, one moment"))
	s.Eventually(func() bool {
		received := s.Platform.ReceivedMessages()
		return len(received) == 1 && received[0] == "of course, one moment"
	}, "the platform should receive the outbound frame")

	// The echo comes straight back; the feed must not grow past the
	// provisional entry.
	time.Sleep(200 * time.Millisecond)
	s.Require().Len(controller.Feed(), 3)
	s.Require().True(controller.Feed()[2].IsMine)

	// --- STEP 4: INBOUND LIVE FRAME ---
	s.StepHeader("Step 4: Receive a frame from the other side")
	s.Require().NoError(s.Platform.PushChatFrame("customer-9", "thanks, waiting"))
	s.Eventually(func() bool {
		return len(controller.Feed()) == 4
	}, "the inbound frame should append to the feed")

	last := controller.Feed()[3]
	s.Require().Equal("thanks, waiting", last.Content)
	s.Require().False(last.IsMine)
	s.Require().True(last.IsGroupStart)

	// --- STEP 5: MERGED FEED IS CACHED ---
	s.StepHeader("Step 5: The merged feed lands in the local cache")
	s.Eventually(func() bool {
		rows, err := cache.Load(s.Platform.SessionID())
		return err == nil && len(rows) == 4
	}, "the cache should hold the merged feed")

	// --- STEP 6: EXPLICIT RECONNECT ---
	s.StepHeader("Step 6: Reconnect rebuilds the conversation")
	s.Require().NoError(controller.Reconnect(context.Background()))
	s.Eventually(func() bool {
		// History has 2 rows; the cached send and reply rows survive the
		// rebuild through the cache warm-up merge.
		return controller.Connected() && len(controller.Feed()) == 4
	}, "reconnect should come back with the merged feed")
}
