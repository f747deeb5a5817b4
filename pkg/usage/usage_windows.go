package usage

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

const (
	// returned as error by go-ole; means "ok, but false"
	sFalse = 0x00000001

	audioSessionStateActive = 1
)

func isFalse(err error) bool {
	var oleErr *ole.OleError
	return errors.As(err, &oleErr) && oleErr.Code() == sFalse
}

func probe() (Usages, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil && !isFalse(err) {
		return nil, fmt.Errorf("cannot initialize ole: %w", err)
	}
	defer ole.CoUninitialize()

	var de *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &de); err != nil {
		return nil, fmt.Errorf("cannot create IMMDeviceEnumerator instance: %w", err)
	}
	defer de.Release()

	return probeEndpointsOf(de)
}

func probeEndpointsOf(enumerator *wca.IMMDeviceEnumerator) (result Usages, _ error) {
	var collection *wca.IMMDeviceCollection
	if err := enumerator.EnumAudioEndpoints(wca.ECapture, wca.DEVICE_STATE_ACTIVE, &collection); err != nil {
		return nil, fmt.Errorf("cannot query IMMDevices: %w", err)
	}
	defer collection.Release()

	var count uint32
	if err := collection.GetCount(&count); err != nil {
		return nil, fmt.Errorf("cannot get count of IMMDevice collection: %w", err)
	}

	for i := uint32(0); i < count; i++ {
		usages, err := probeEndpointOf(collection, i)
		if err != nil {
			return nil, err
		}
		result = append(result, usages...)
	}

	return
}

func probeEndpointOf(collection *wca.IMMDeviceCollection, index uint32) (Usages, error) {
	var device *wca.IMMDevice
	if err := collection.Item(index, &device); err != nil {
		return nil, fmt.Errorf("cannot get item %d of IMMDevice collection: %w", index, err)
	}
	defer device.Release()

	var propertyStore *wca.IPropertyStore
	if err := device.OpenPropertyStore(wca.STGM_READ, &propertyStore); err != nil {
		return nil, fmt.Errorf("cannot get properties of endpoint %d: %w", index, err)
	}
	defer propertyStore.Release()

	var name wca.PROPVARIANT
	if err := propertyStore.GetValue(&wca.PKEY_Device_FriendlyName, &name); err != nil {
		return nil, fmt.Errorf("cannot get name of endpoint %d: %w", index, err)
	}
	endpoint := name.String()

	var sessionManager *wca.IAudioSessionManager2
	if err := device.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &sessionManager); err != nil {
		return nil, fmt.Errorf("cannot get session manager of endpoint %q: %w", endpoint, err)
	}
	defer sessionManager.Release()

	var sessions *wca.IAudioSessionEnumerator
	if err := sessionManager.GetSessionEnumerator(&sessions); err != nil {
		return nil, fmt.Errorf("cannot get audio sessions of endpoint %q: %w", endpoint, err)
	}
	defer sessions.Release()

	var sessionCount int
	if err := sessions.GetCount(&sessionCount); err != nil {
		return nil, fmt.Errorf("cannot get count of audio sessions of endpoint %q: %w", endpoint, err)
	}

	var result Usages
	for i := 0; i < sessionCount; i++ {
		pid, ok, err := probeSessionOf(sessions, i)
		if err != nil {
			return nil, fmt.Errorf("cannot probe audio session %d of endpoint %q: %w", i, endpoint, err)
		}
		if ok {
			result = append(result, Usage{
				Endpoint: endpoint,
				Pid:      pid,
			})
		}
	}
	return result, nil
}

// probeSessionOf returns the process holding the session if the session is
// active and not the system sounds session.
func probeSessionOf(sessions *wca.IAudioSessionEnumerator, index int) (uint32, bool, error) {
	var control *wca.IAudioSessionControl
	if err := sessions.GetSession(index, &control); err != nil {
		return 0, false, fmt.Errorf("cannot get session: %w", err)
	}
	defer control.Release()

	dispatch, err := control.QueryInterface(wca.IID_IAudioSessionControl2)
	if err != nil {
		return 0, false, fmt.Errorf("cannot get session control: %w", err)
	}
	control2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))
	defer control2.Release()

	if err := control2.IsSystemSoundsSession(); err == nil {
		return 0, false, nil
	} else if !isFalse(err) {
		return 0, false, fmt.Errorf("cannot determine if it is the system sounds session: %w", err)
	}

	var state uint32
	if err := control.GetState(&state); err != nil {
		return 0, false, fmt.Errorf("cannot get state: %w", err)
	}
	if state != audioSessionStateActive {
		return 0, false, nil
	}

	var pid uint32
	if err := control2.GetProcessId(&pid); err != nil {
		return 0, false, fmt.Errorf("cannot get id of holding process: %w", err)
	}
	return pid, true, nil
}
