package out

import (
	"context"

	"nightwatch/internal/modules/tracker/domain"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	visiondto "nightwatch/internal/modules/vision/dto"
	visionin "nightwatch/internal/modules/vision/port/in"
)

// PluginClassifier hands screenshots to a classifier plugin through the
// vision module.
type PluginClassifier struct {
	vision     visionin.Usecase
	pluginName string
}

func NewPluginClassifier(vision visionin.Usecase, pluginName string) trackerout.PhaseClassifier {
	return &PluginClassifier{vision: vision, pluginName: pluginName}
}

func (c *PluginClassifier) Classify(ctx context.Context, shot domain.Screenshot) (string, error) {
	out, err := c.vision.Classify(ctx, visiondto.ClassifyInput{
		PluginName:   c.pluginName,
		ImageDataURI: shot.DataURI(),
	})
	if err != nil {
		return "", err
	}
	return out.Label, nil
}
