package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

func TestSelectChannelPrefersWhatsApp(t *testing.T) {
	tenant := &model.Tenant{
		WhatsAppNumber: "+491701234567",
		Email:          "tenant@example.com",
	}
	channel, dest := SelectChannel(tenant)
	assert.Equal(t, model.ChannelWhatsApp, channel)
	assert.Equal(t, "+491701234567", dest)
}

func TestSelectChannelFallsBackToEmail(t *testing.T) {
	tenant := &model.Tenant{Email: "tenant@example.com"}
	channel, dest := SelectChannel(tenant)
	assert.Equal(t, model.ChannelEmail, channel)
	assert.Equal(t, "tenant@example.com", dest)
}

func TestSelectChannelInAppWhenUnreachable(t *testing.T) {
	channel, dest := SelectChannel(&model.Tenant{})
	assert.Equal(t, model.ChannelInApp, channel)
	assert.Empty(t, dest)

	channel, dest = SelectChannel(nil)
	assert.Equal(t, model.ChannelInApp, channel)
	assert.Empty(t, dest)
}
