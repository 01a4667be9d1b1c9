package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type mockSNS struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func TestSESClient_SendEmail(t *testing.T) {
	var captured *ses.SendEmailInput
	client := NewSESClientWithAPI(&mockSES{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: sdkaws.String("ses-1")}, nil
		},
	}, "loans@example.com")

	id, err := client.SendEmail(context.Background(), "jane@example.com", "Loan approved", "Your loan 5 is approved")
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, "loans@example.com", sdkaws.ToString(captured.Source))
	assert.Equal(t, []string{"jane@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Loan approved", sdkaws.ToString(captured.Message.Subject.Data))
}

func TestSESClient_SendEmailError(t *testing.T) {
	client := NewSESClientWithAPI(&mockSES{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		},
	}, "loans@example.com")

	_, err := client.SendEmail(context.Background(), "x@example.com", "s", "b")
	assert.EqualError(t, err, "MessageRejected")
}

func TestSNSClient_SendSMS(t *testing.T) {
	var captured *sns.PublishInput
	client := NewSNSClientWithAPI(&mockSNS{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{MessageId: sdkaws.String("sns-1")}, nil
		},
	}, "LENDER")

	id, err := client.SendSMS(context.Background(), "+919000000001", "Loan approved")
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Equal(t, "+919000000001", sdkaws.ToString(captured.PhoneNumber))
	assert.Equal(t, "LENDER", sdkaws.ToString(captured.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", sdkaws.ToString(captured.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSNSClient_NoSenderID(t *testing.T) {
	var captured *sns.PublishInput
	client := NewSNSClientWithAPI(&mockSNS{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{}, nil
		},
	}, "")

	_, err := client.SendSMS(context.Background(), "+1", "hi")
	require.NoError(t, err)
	_, ok := captured.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, ok)
}
