package types_test

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/rule"
)

func TestPresignRequestAllowsUnknownSize(t *testing.T) {
	req := types.PresignRequest{Filename: "dog.jpg", ContentType: "image/jpeg"}
	assert.NoError(t, rule.ValidateStruct(req))

	req.Size = -1
	assert.Error(t, rule.ValidateStruct(req))
}

func TestSaveFileRequestRecognize(t *testing.T) {
	var req types.SaveFileRequest
	require.NoError(t, sonic.Unmarshal([]byte(`{"name":"a.png","url":"https://x/a.png","type":"image/png","recognize":false}`), &req))
	require.NotNil(t, req.Recognize)
	assert.False(t, *req.Recognize)
	assert.NoError(t, rule.ValidateStruct(req))

	req = types.SaveFileRequest{}
	require.NoError(t, sonic.Unmarshal([]byte(`{"name":"a.png","url":"https://x/a.png","type":"image/png"}`), &req))
	assert.Nil(t, req.Recognize)
}

func TestIDsRequest(t *testing.T) {
	assert.Error(t, rule.ValidateStruct(types.IDsRequest{}))
	assert.Error(t, rule.ValidateStruct(types.IDsRequest{IDs: []string{""}}))
	assert.NoError(t, rule.ValidateStruct(types.IDsRequest{IDs: []string{"f1"}}))
}
