package meshdef

import (
	"encoding/json"
	"fmt"
	"os"
)

type jsonModelDefinition struct {
	Dimmable                 bool `json:"dimmable"`
	SupportsColorTemperature bool `json:"supportsColorTemperature"`
	SupportsColor            bool `json:"supportsColor"`
}

func loadFromFile(filename string) (map[string]ModelDefinition, error) {
	ret := make(map[string]ModelDefinition)

	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return ret, nil
	}

	jsonBuf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read mesh definition file %v: %w", filename, err)
	}

	var jsonLoadedMap map[string]jsonModelDefinition
	if err := json.Unmarshal(jsonBuf, &jsonLoadedMap); err != nil {
		return nil, fmt.Errorf("unmarshal mesh definition file %v: %w", filename, err)
	}

	for modelName, jsonDef := range jsonLoadedMap {
		ret[modelName] = ModelDefinition{
			Model:                    modelName,
			Dimmable:                 jsonDef.Dimmable,
			SupportsColorTemperature: jsonDef.SupportsColorTemperature,
			SupportsColor:            jsonDef.SupportsColor,
		}
	}

	return ret, nil
}
