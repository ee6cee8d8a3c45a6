package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// API is the subset of the EventBridge client the emitter uses.
type API interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

func NewClient(awsCfg aws.Config, endpoint *string) *eventbridge.Client {
	opts := []func(*eventbridge.Options){}
	if endpoint != nil {
		opts = append(opts, func(o *eventbridge.Options) {
			o.BaseEndpoint = endpoint
		})
	}
	return eventbridge.NewFromConfig(awsCfg, opts...)
}

// Emitter publishes outbound events. It makes exactly one PutEvents call per Emit.
type Emitter struct {
	api API
	now func() time.Time
}

func NewEmitter(api API) *Emitter {
	return &Emitter{api: api, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, busName, source, detailType string, detail any) error {
	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode %s detail: %w", detailType, err)
	}
	out, err := e.api.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(busName),
			Source:       aws.String(source),
			DetailType:   aws.String(detailType),
			Detail:       aws.String(string(body)),
			Time:         aws.Time(e.now().UTC()),
		}},
	})
	if err != nil {
		return fmt.Errorf("put events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		code, msg := "unknown", ""
		if len(out.Entries) > 0 {
			code = aws.ToString(out.Entries[0].ErrorCode)
			msg = aws.ToString(out.Entries[0].ErrorMessage)
		}
		return fmt.Errorf("put events: entry rejected: %s %s", code, msg)
	}
	return nil
}
