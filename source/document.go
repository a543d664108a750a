package source

import "sync"

// document holds the last successfully decoded configuration of a
// repository. Readers never observe a partially written map.
type document struct {
	sync.RWMutex                        // RWMutex to synchronize access to data during refresh
	data         map[string]interface{} // Map to store the configuration data
	rawData      []byte                 // Raw bytes of the configuration document
}

// GetData returns the value stored under key.
func (d *document) GetData(key string) (config interface{}, isPresent bool) {
	d.RLock()
	defer d.RUnlock()
	config, isPresent = d.data[key]
	return config, isPresent
}

// GetRawData returns the raw bytes of the configuration document.
func (d *document) GetRawData() []byte {
	d.RLock()
	defer d.RUnlock()
	return d.rawData
}

// swap decodes raw outside the lock and replaces the stored data only when
// decoding succeeds.
func (d *document) swap(raw []byte) error {
	data, err := decode(raw)
	if err != nil {
		return err
	}
	d.Lock()
	d.data = data
	d.rawData = raw
	d.Unlock()
	return nil
}

func (d *document) set(data map[string]interface{}, raw []byte) {
	d.Lock()
	d.data = data
	d.rawData = raw
	d.Unlock()
}
