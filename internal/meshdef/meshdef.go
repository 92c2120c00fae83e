package meshdef

// ModelDefinition carries the capabilities known for a device model.
// Discovery advertisements win when they carry explicit flags, these
// definitions fill the gaps for models that advertise none.
type ModelDefinition struct {
	Model                    string
	Dimmable                 bool
	SupportsColorTemperature bool
	SupportsColor            bool
}

type MeshDefService interface {
	GetByModel(model string) (ModelDefinition, bool)
}

type meshDefService struct {
	defMap map[string]ModelDefinition
}

func (md *meshDefService) GetByModel(model string) (ModelDefinition, bool) {
	def, ok := md.defMap[model]
	return def, ok
}

// New loads model definitions from a JSON file. A missing file is not an
// error, the bridge then runs on advertisement flags alone.
func New(filename string) (MeshDefService, error) {
	defMap, err := loadFromFile(filename)
	if err != nil {
		return nil, err
	}

	return &meshDefService{
		defMap: defMap,
	}, nil
}
