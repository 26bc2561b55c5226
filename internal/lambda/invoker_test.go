package lambda

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/goccy/go-json"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/logging"
)

type fakeAPI struct {
	out   *awslambda.InvokeOutput
	err   error
	input *awslambda.InvokeInput
}

func (f *fakeAPI) Invoke(_ context.Context, in *awslambda.InvokeInput, _ ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error) {
	f.input = in
	return f.out, f.err
}

func newFake(out *awslambda.InvokeOutput, err error) (*Client, *fakeAPI) {
	api := &fakeAPI{out: out, err: err}
	return newWithAPI(api, Config{FunctionName: "bulk-translate"}, logging.Discard()), api
}

func TestInvokeSendsRequestResponse(t *testing.T) {
	t.Parallel()

	c, api := newFake(&awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"job_id":"j1"}`)}, nil)

	got, err := c.Invoke(context.Background(), map[string]any{"article_ids": []int{1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"job_id":"j1"}` {
		t.Fatalf("unexpected payload: %s", got)
	}
	if aws.ToString(api.input.FunctionName) != "bulk-translate" {
		t.Fatalf("unexpected function: %q", aws.ToString(api.input.FunctionName))
	}
	if api.input.InvocationType != types.InvocationTypeRequestResponse {
		t.Fatalf("unexpected invocation type: %v", api.input.InvocationType)
	}
	var sent map[string][]int
	if err := json.Unmarshal(api.input.Payload, &sent); err != nil || len(sent["article_ids"]) != 2 {
		t.Fatalf("unexpected sent payload: %s", api.input.Payload)
	}
}

func TestInvokeFunctionError(t *testing.T) {
	t.Parallel()

	c, _ := newFake(&awslambda.InvokeOutput{
		StatusCode:    200,
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorMessage":"boom","errorType":"Error"}`),
	}, nil)

	_, err := c.Invoke(context.Background(), map[string]any{})
	var fe *FunctionError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FunctionError, got %v", err)
	}
	if fe.Kind != "Unhandled" || fe.Message() != "boom" {
		t.Fatalf("unexpected function error: %+v", fe)
	}
	if he := fe.HTTPError(); he.Status != http.StatusBadGateway {
		t.Fatalf("unexpected http mapping: %+v", he)
	}
}

func TestInvokeUnwrapsProxyResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
		status  int
	}{
		{name: "string body", payload: `{"statusCode":200,"body":"{\"queued\":3}"}`, want: `{"queued":3}`},
		{name: "object body", payload: `{"statusCode":202,"body":{"queued":2}}`, want: `{"queued":2}`},
		{name: "plain object", payload: `{"queued":1}`, want: `{"queued":1}`},
		{name: "array", payload: `[1,2]`, want: `[1,2]`},
		{name: "empty accepted body", payload: `{"statusCode":202,"body":""}`, want: `null`},
		{name: "blank no content body", payload: `{"statusCode":204,"body":"  "}`, want: `null`},
		{name: "proxy 400", payload: `{"statusCode":400,"body":"{\"error\":\"unknown language\"}"}`, status: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newFake(&awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(tt.payload)}, nil)
			got, err := c.Invoke(context.Background(), nil)
			if tt.status != 0 {
				var fe *FunctionError
				if !errors.As(err, &fe) {
					t.Fatalf("expected FunctionError, got %v", err)
				}
				he := fe.HTTPError()
				if he.Status != tt.status || he.Message != "unknown language" {
					t.Fatalf("unexpected mapping: %+v", he)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInvokeInvalidPayload(t *testing.T) {
	t.Parallel()

	c, _ := newFake(&awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(`not json`)}, nil)
	if _, err := c.Invoke(context.Background(), nil); !errors.Is(err, httperror.ErrInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
}

func TestInvokeTransportError(t *testing.T) {
	t.Parallel()

	c, _ := newFake(nil, errors.New("no credentials"))
	_, err := c.Invoke(context.Background(), nil)
	if !errors.Is(err, httperror.ErrBackendUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestNewRequiresFunctionName(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Region: "eu-west-1"}, logging.Discard()); err == nil {
		t.Fatalf("expected error for empty function name")
	}
}
