package kreq

// ApiKey identifies a Kafka request schema, per the official protocol
// registry (http://kafka.apache.org/protocol.html#protocol_api_keys).
// Only the subset this engine builds requests for is listed.
type ApiKey int16

const (
	ApiKeyProduce          ApiKey = 0
	ApiKeyOffset           ApiKey = 2 // ListOffsets
	ApiKeyMetadata         ApiKey = 3
	ApiKeyOffsetCommit     ApiKey = 8
	ApiKeyOffsetFetch      ApiKey = 9
	ApiKeyGroupCoordinator ApiKey = 10 // FindCoordinator
	ApiKeyJoinGroup        ApiKey = 11
	ApiKeyHeartbeat        ApiKey = 12
	ApiKeyLeaveGroup       ApiKey = 13
	ApiKeySyncGroup        ApiKey = 14
	ApiKeyDescribeGroups   ApiKey = 15
	ApiKeyListGroups       ApiKey = 16
	ApiKeySaslHandshake    ApiKey = 17
	ApiKeyApiVersions      ApiKey = 18
	ApiKeyCreateTopics     ApiKey = 19
	ApiKeyDeleteTopics     ApiKey = 20
	ApiKeyDescribeConfigs  ApiKey = 32
	ApiKeyAlterConfigs     ApiKey = 33
	ApiKeyCreatePartitions ApiKey = 37
)

func (k ApiKey) String() string {
	if s, ok := apiKeyNames[k]; ok {
		return s
	}
	return "UNKNOWN_API_KEY"
}

var apiKeyNames = map[ApiKey]string{
	ApiKeyProduce:          "Produce",
	ApiKeyOffset:           "Offset",
	ApiKeyMetadata:         "Metadata",
	ApiKeyOffsetCommit:     "OffsetCommit",
	ApiKeyOffsetFetch:      "OffsetFetch",
	ApiKeyGroupCoordinator: "GroupCoordinator",
	ApiKeyJoinGroup:        "JoinGroup",
	ApiKeyHeartbeat:        "Heartbeat",
	ApiKeyLeaveGroup:       "LeaveGroup",
	ApiKeySyncGroup:        "SyncGroup",
	ApiKeyDescribeGroups:   "DescribeGroups",
	ApiKeyListGroups:       "ListGroups",
	ApiKeySaslHandshake:    "SaslHandshake",
	ApiKeyApiVersions:      "ApiVersion",
	ApiKeyCreateTopics:     "CreateTopics",
	ApiKeyDeleteTopics:     "DeleteTopics",
	ApiKeyDescribeConfigs:  "DescribeConfigs",
	ApiKeyAlterConfigs:     "AlterConfigs",
	ApiKeyCreatePartitions: "CreatePartitions",
}
