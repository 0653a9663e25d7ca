package matrix

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_CaseCounts(t *testing.T) {
	m, err := Load("testdata/mmseg.yml")
	require.NoError(t, err)

	plan := Expand(m)
	assert.Len(t, plan.Cases, 35)

	perModel := map[string]int{}
	for _, c := range plan.Cases {
		perModel[c.Model]++
	}
	// FCN: 1 model config x 6 pipelines.
	assert.Equal(t, 6, perModel["FCN"])
	assert.Equal(t, 5, perModel["Fast-SCNN"])
}

func TestExpand_PlanIdentity(t *testing.T) {
	m, err := Load("testdata/mmseg.yml")
	require.NoError(t, err)

	plan := Expand(m)
	_, err = uuid.Parse(plan.PlanID)
	assert.NoError(t, err, "plan id must be a uuid")
	assert.False(t, plan.GeneratedAt.IsZero())
	assert.Equal(t, "../mmsegmentation", plan.CodebaseDir)
}

func TestExpand_CaseFields(t *testing.T) {
	m, err := Load("testdata/mmseg.yml")
	require.NoError(t, err)

	plan := Expand(m)
	var c *TestCase
	for i := range plan.Cases {
		if plan.Cases[i].Model == "FCN" && plan.Cases[i].Pipeline == "pipeline_ort_dynamic_fp32" {
			c = &plan.Cases[i]
		}
	}
	require.NotNil(t, c)

	assert.Equal(t, "configs/fcn/fcn.yml", c.Metafile)
	assert.Equal(t, "configs/fcn/fcn_r50-d8_512x1024_40k_cityscapes.py", c.ModelConfig)
	assert.Equal(t, "onnxruntime", c.Backend)
	assert.Equal(t, "configs/mmseg/segmentation_onnxruntime_dynamic.py", c.DeployConfig)
	assert.Equal(t, "configs/mmseg/segmentation_sdk_dynamic.py", c.SDKConfig)
	assert.True(t, c.BackendTest)
	assert.Equal(t, c.InputImg, c.TestImg)
	require.Len(t, c.Metrics, 1)
	assert.Equal(t, "mIoU", c.Metrics[0].EvalName)
	assert.InDelta(t, 1.0, c.Metrics[0].Tolerance, 0)
}

func TestExpand_OrderIsStable(t *testing.T) {
	m, err := Load("testdata/mmseg.yml")
	require.NoError(t, err)

	first := Expand(m)
	second := Expand(m)
	require.Equal(t, len(first.Cases), len(second.Cases))
	for i := range first.Cases {
		assert.Equal(t, first.Cases[i].Model, second.Cases[i].Model)
		assert.Equal(t, first.Cases[i].Pipeline, second.Cases[i].Pipeline)
	}
	// Case order follows model order in the file.
	assert.Equal(t, "FCN", first.Cases[0].Model)
	assert.Equal(t, "pipeline_ts_fp32", first.Cases[0].Pipeline)
}

func TestWritePlan(t *testing.T) {
	m, err := Load("testdata/mmseg.yml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, WritePlan(path, Expand(m)))

	assert.FileExists(t, path)
}

func TestPlanPairs(t *testing.T) {
	m, err := Load("testdata/mmseg.yml")
	require.NoError(t, err)

	pairs := Expand(m).Pairs()
	assert.Equal(t, 1, pairs[[2]string{"FCN", "pipeline_ort_dynamic_fp32"}])
	assert.Zero(t, pairs[[2]string{"Fast-SCNN", "pipeline_ncnn_static_fp32"}])
}
