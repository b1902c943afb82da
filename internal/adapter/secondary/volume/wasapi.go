package volume

import (
	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
)

// volumeNotificationData mirrors AUDIO_VOLUME_NOTIFICATION_DATA from
// endpointvolume.h. Only the first channel slot is declared; the callback
// reads the master values.
type volumeNotificationData struct {
	EventContext   [16]byte // GUID
	Muted          int32    // BOOL
	MasterVolume   float32
	Channels       uint32
	ChannelVolumes [1]float32
}

// notification converts the raw callback payload for the bridge.
func (d *volumeNotificationData) notification() domain.Notification {
	return domain.Notification{
		Muted: d.Muted != 0,
		Level: d.MasterVolume,
	}
}

// deliverVolumeNotification hands d to l. A nil payload is ignored.
func deliverVolumeNotification(l domain.VolumeListener, d *volumeNotificationData) {
	if d == nil || l == nil {
		return
	}
	if err := l.OnNotify(d.notification()); err != nil {
		logging.Debugf("volume listener: %v", err)
	}
}
