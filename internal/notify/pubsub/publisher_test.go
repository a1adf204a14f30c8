package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	notifypubsub "github.com/JakeFAU/careerwatch/internal/notify/pubsub"
)

func TestPublisherNotify(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "job-postings")
	require.NoError(t, err)

	pub := notifypubsub.New(topic)
	defer pub.Stop()

	posting := crawler.JobPosting{
		Company:    "Acme",
		Title:      "Backend Engineer",
		PostedDate: "01/03/2024",
		Location:   "Bengaluru",
		ApplyLink:  "https://acme.example/careers/123-engineer",
	}
	require.NoError(t, pub.Notify(ctx, posting, "💼 Backend Engineer"))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Acme", msgs[0].Attributes["company"])

	var got notifypubsub.Message
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, posting, got.JobPosting)
	require.Equal(t, "💼 Backend Engineer", got.Text)
}

func TestPublisherWithoutTopic(t *testing.T) {
	t.Parallel()

	err := notifypubsub.New(nil).Notify(context.Background(), crawler.JobPosting{}, "x")
	require.ErrorIs(t, err, crawler.ErrNotifyFailure)
}
