//go:build windows

package volume

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"

	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
)

func newPlatformEndpoint() (domain.EndpointVolume, error) {
	return NewWASAPIEndpoint(), nil
}

// WASAPIEndpoint implements domain.EndpointVolume with the Core Audio
// IAudioEndpointVolume notification callback.
// This is a secondary adapter.
type WASAPIEndpoint struct{}

// NewWASAPIEndpoint creates the Windows endpoint.
func NewWASAPIEndpoint() *WASAPIEndpoint {
	return &WASAPIEndpoint{}
}

func (w *WASAPIEndpoint) Name() string {
	return "WASAPI (Windows Core Audio)"
}

// RegisterControlChangeNotify acquires the default render endpoint and
// registers l. The COM objects live on a locked OS thread until ctx is done.
func (w *WASAPIEndpoint) RegisterControlChangeNotify(ctx context.Context, l domain.VolumeListener) error {
	errCh := make(chan error, 1)
	go w.hold(ctx, l, errCh)
	return <-errCh
}

func (w *WASAPIEndpoint) hold(ctx context.Context, l domain.VolumeListener, errCh chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		errCh <- fmt.Errorf("couldn't initialize COM: %w", err)
		return
	}
	defer ole.CoUninitialize()
	logging.Debugf("initialized windows connection")

	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		errCh <- fmt.Errorf("couldn't get media device enumerator: %w", err)
		return
	}
	defer mmde.Release()
	logging.Debugf("got media device enumerator")

	var mmd *wca.IMMDevice
	if err := mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EMultimedia, &mmd); err != nil {
		errCh <- fmt.Errorf("couldn't get default audio endpoint: %w", err)
		return
	}
	defer mmd.Release()
	logging.Debugf("got default audio endpoint")

	var aev *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		errCh <- fmt.Errorf("couldn't get endpoint volume control: %w", err)
		return
	}
	defer aev.Release()
	logging.Debugf("got endpoint volume control")

	callback := newVolumeCallback(l)
	if err := registerVolumeCallback(aev, callback); err != nil {
		errCh <- fmt.Errorf("couldn't set volume change callback: %w", err)
		return
	}
	logging.Debugf("set volume change callback")
	errCh <- nil

	<-ctx.Done()
	if err := unregisterVolumeCallback(aev, callback); err != nil {
		logging.Debugf("unregister volume change callback: %v", err)
	}
	runtime.KeepAlive(callback)
}

// iidAudioEndpointVolumeCallback is IID_IAudioEndpointVolumeCallback.
var iidAudioEndpointVolumeCallback = ole.NewGUID("{657804FA-D6AD-4496-8A60-352752AF4F89}")

type volumeCallbackVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
	OnNotify       uintptr
}

// volumeCallback is an IAudioEndpointVolumeCallback implemented in Go.
// vtbl must stay the first field.
type volumeCallback struct {
	vtbl     *volumeCallbackVtbl
	refs     atomic.Int32
	listener domain.VolumeListener
}

var (
	callbackVtblOnce sync.Once
	callbackVtbl     *volumeCallbackVtbl
)

func newVolumeCallback(l domain.VolumeListener) *volumeCallback {
	callbackVtblOnce.Do(func() {
		callbackVtbl = &volumeCallbackVtbl{
			QueryInterface: syscall.NewCallback(volumeCallbackQueryInterface),
			AddRef:         syscall.NewCallback(volumeCallbackAddRef),
			Release:        syscall.NewCallback(volumeCallbackRelease),
			OnNotify:       syscall.NewCallback(volumeCallbackOnNotify),
		}
	})
	cb := &volumeCallback{vtbl: callbackVtbl, listener: l}
	cb.refs.Store(1)
	return cb
}

func volumeCallbackFrom(this uintptr) *volumeCallback {
	return (*volumeCallback)(unsafe.Pointer(this))
}

func volumeCallbackQueryInterface(this, riid, ppv uintptr) uintptr {
	out := (*uintptr)(unsafe.Pointer(ppv))
	iid := (*ole.GUID)(unsafe.Pointer(riid))
	if ole.IsEqualGUID(iid, ole.IID_IUnknown) || ole.IsEqualGUID(iid, iidAudioEndpointVolumeCallback) {
		*out = this
		volumeCallbackFrom(this).refs.Add(1)
		return ole.S_OK
	}
	*out = 0
	return ole.E_NOINTERFACE
}

func volumeCallbackAddRef(this uintptr) uintptr {
	return uintptr(volumeCallbackFrom(this).refs.Add(1))
}

// The object is owned by the Go heap, so Release only counts.
func volumeCallbackRelease(this uintptr) uintptr {
	return uintptr(volumeCallbackFrom(this).refs.Add(-1))
}

func volumeCallbackOnNotify(this, data uintptr) uintptr {
	cb := volumeCallbackFrom(this)
	deliverVolumeNotification(cb.listener, (*volumeNotificationData)(unsafe.Pointer(data)))
	return ole.S_OK
}

// go-wca leaves IAudioEndpointVolume::RegisterControlChangeNotify
// unimplemented, so it is called through the vtable.
func registerVolumeCallback(aev *wca.IAudioEndpointVolume, cb *volumeCallback) error {
	hr, _, _ := syscall.SyscallN(
		aev.VTable().RegisterControlChangeNotify,
		uintptr(unsafe.Pointer(aev)),
		uintptr(unsafe.Pointer(cb)))
	if hr != 0 {
		return ole.NewError(hr)
	}
	return nil
}

func unregisterVolumeCallback(aev *wca.IAudioEndpointVolume, cb *volumeCallback) error {
	hr, _, _ := syscall.SyscallN(
		aev.VTable().UnregisterControlChangeNotify,
		uintptr(unsafe.Pointer(aev)),
		uintptr(unsafe.Pointer(cb)))
	if hr != 0 {
		return ole.NewError(hr)
	}
	return nil
}
