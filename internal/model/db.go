package model

import (
	"time"

	"gorm.io/datatypes"
)

// Fingerprint 单次提交的完整指纹记录。
// 主键即浏览器指纹ID（稳定字段哈希），同一浏览器重复提交会整行覆盖。
type Fingerprint struct {
	ID        string         `gorm:"column:id;primaryKey;type:varchar(64);comment:浏览器指纹ID（主键）"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb;not null;comment:完整指纹文档（client+server）"`
	IP        string         `gorm:"column:ip;type:varchar(64);comment:客户端IP"`
	UserAgent string         `gorm:"column:user_agent;type:text;comment:User-Agent"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;index:idx_created_at,sort:desc;default:now();comment:创建时间"`
}

// DeviceFingerprint 设备指纹表（用于设备唯一性判定）
type DeviceFingerprint struct {
	ID                  uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	DeviceID            string    `gorm:"column:device_id;type:varchar(128);uniqueIndex:idx_device_id;not null;comment:设备唯一ID（客户端长ID）"`
	CoreID              string    `gorm:"column:core_id;type:varchar(64);index:idx_core_id;not null;comment:核心指纹短ID（精确匹配键）"`
	ExtendedID          string    `gorm:"column:extended_id;type:varchar(64);comment:扩展指纹ID"`
	Audio               string    `gorm:"column:audio;type:varchar(128);comment:核心信号：音频指纹"`
	CanvasGeometry      string    `gorm:"column:canvas_geometry;type:varchar(128);comment:核心信号：Canvas几何指纹"`
	WebglRenderer       string    `gorm:"column:webgl_renderer;type:varchar(256);comment:核心信号：WebGL渲染器"`
	WebglVendor         string    `gorm:"column:webgl_vendor;type:varchar(256);comment:WebGL厂商（仅留存，不参与评分）"`
	Fonts               string    `gorm:"column:fonts;type:text;comment:字体列表指纹（仅留存，不参与评分）"`
	Math                string    `gorm:"column:math;type:varchar(128);comment:核心信号：数学精度指纹"`
	Screen              string    `gorm:"column:screen;type:varchar(64);comment:环境信号：屏幕分辨率"`
	Timezone            string    `gorm:"column:timezone;type:varchar(64);comment:环境信号：时区"`
	Platform            string    `gorm:"column:platform;type:varchar(64);comment:环境信号：平台"`
	HardwareConcurrency int       `gorm:"column:hardware_concurrency;type:int;comment:环境信号：逻辑核心数"`
	Confidence          int       `gorm:"column:confidence;type:int;comment:客户端上报的置信度"`
	FirstSeen           time.Time `gorm:"column:first_seen;type:timestamp;default:now();comment:首次出现时间"`
	LastSeen            time.Time `gorm:"column:last_seen;type:timestamp;default:now();comment:最近出现时间"`
	VisitCount          int       `gorm:"column:visit_count;type:int;default:1;comment:访问次数"`
}

// DeviceVisit 设备访问记录表（只追加）。
// device_id 仅为弱引用：设备记录删除后访问日志仍保留。
type DeviceVisit struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	DeviceID   string    `gorm:"column:device_id;type:varchar(128);index:idx_device_visits_device_id;not null;comment:关联设备ID"`
	IPAddress  string    `gorm:"column:ip_address;type:varchar(64);comment:访问IP"`
	UserAgent  string    `gorm:"column:user_agent;type:text;comment:User-Agent"`
	MatchType  string    `gorm:"column:match_type;type:varchar(16);comment:匹配类型：exact/fuzzy_core/fuzzy_env/new"`
	Confidence int       `gorm:"column:confidence;type:int;comment:本次匹配置信度"`
	VisitTime  time.Time `gorm:"column:visit_time;type:timestamp;default:now();comment:访问时间"`
}

func (Fingerprint) TableName() string       { return "fingerprints" }
func (DeviceFingerprint) TableName() string { return "device_fingerprints" }
func (DeviceVisit) TableName() string       { return "device_visits" }
