package kube

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// Container images for the application stack. n8n itself is an unmodified
// third-party artifact.
const (
	n8nImage      = "n8nio/n8n:1.64.3"
	postgresImage = "postgres:16-alpine"
)

// Object names within the application namespace.
const (
	SecretName      = "n8n-secrets"
	DataVolumeName  = "n8n-data"
	DatabaseName    = "postgres"
	WorkloadName    = "n8n"
	ServiceName     = "n8n"
	IngressName     = "n8n"
	n8nPort         = 5678
	postgresPort    = 5432
	appLabelKey     = "app"
	managedByLabel  = "app.kubernetes.io/managed-by"
	managedByValue  = "glidepath"
	secretKeyDBPass = "DB_PASSWORD"
	secretKeyEncKey = "N8N_ENCRYPTION_KEY"
)

// AppSpec carries the application-stage parameters taken from the
// environment configuration.
type AppSpec struct {
	Namespace     string
	Domain        string
	Replicas      int32
	DiskSizeGB    int
	DBDiskSizeGB  int
	CPURequest    string
	MemoryRequest string
	// AddressName is the global static IP the ingress binds to.
	AddressName string
	// CertificateName is the pre-shared managed certificate attached to the
	// ingress.
	CertificateName string
}

func labels(app string) map[string]string {
	return map[string]string{appLabelKey: app, managedByLabel: managedByValue}
}

func buildNamespace(spec AppSpec) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: spec.Namespace, Labels: labels(WorkloadName)},
	}
}

func buildSecret(spec AppSpec, dbPassword, encryptionKey string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: SecretName, Namespace: spec.Namespace, Labels: labels(WorkloadName)},
		Type:       corev1.SecretTypeOpaque,
		StringData: map[string]string{
			secretKeyDBPass: dbPassword,
			secretKeyEncKey: encryptionKey,
		},
	}
}

func buildDataVolume(spec AppSpec) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: DataVolumeName, Namespace: spec.Namespace, Labels: labels(WorkloadName)},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(fmt.Sprintf("%dGi", spec.DiskSizeGB)),
				},
			},
		},
	}
}

func buildDatabase(spec AppSpec) *appsv1.StatefulSet {
	replicas := int32(1)
	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: DatabaseName, Namespace: spec.Namespace, Labels: labels(DatabaseName)},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: DatabaseName,
			Replicas:    &replicas,
			Selector:    &metav1.LabelSelector{MatchLabels: map[string]string{appLabelKey: DatabaseName}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels(DatabaseName)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  DatabaseName,
							Image: postgresImage,
							Ports: []corev1.ContainerPort{{ContainerPort: postgresPort}},
							Env: []corev1.EnvVar{
								{Name: "POSTGRES_DB", Value: "n8n"},
								{Name: "POSTGRES_USER", Value: "n8n"},
								{
									Name: "POSTGRES_PASSWORD",
									ValueFrom: &corev1.EnvVarSource{
										SecretKeyRef: &corev1.SecretKeySelector{
											LocalObjectReference: corev1.LocalObjectReference{Name: SecretName},
											Key:                  secretKeyDBPass,
										},
									},
								},
								{Name: "PGDATA", Value: "/var/lib/postgresql/data/pgdata"},
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: "pgdata", MountPath: "/var/lib/postgresql/data"},
							},
						},
					},
				},
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{
				{
					ObjectMeta: metav1.ObjectMeta{Name: "pgdata"},
					Spec: corev1.PersistentVolumeClaimSpec{
						AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
						Resources: corev1.VolumeResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceStorage: resource.MustParse(fmt.Sprintf("%dGi", spec.DBDiskSizeGB)),
							},
						},
					},
				},
			},
		},
	}
}

func buildDatabaseService(spec AppSpec) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: DatabaseName, Namespace: spec.Namespace, Labels: labels(DatabaseName)},
		Spec: corev1.ServiceSpec{
			ClusterIP: corev1.ClusterIPNone,
			Selector:  map[string]string{appLabelKey: DatabaseName},
			Ports:     []corev1.ServicePort{{Port: postgresPort}},
		},
	}
}

func buildWorkload(spec AppSpec) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: WorkloadName, Namespace: spec.Namespace, Labels: labels(WorkloadName)},
		Spec: appsv1.DeploymentSpec{
			Replicas: &spec.Replicas,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{appLabelKey: WorkloadName}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels(WorkloadName)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  WorkloadName,
							Image: n8nImage,
							Ports: []corev1.ContainerPort{{ContainerPort: n8nPort}},
							Env: []corev1.EnvVar{
								{Name: "DB_TYPE", Value: "postgresdb"},
								{Name: "DB_POSTGRESDB_HOST", Value: DatabaseName},
								{Name: "DB_POSTGRESDB_DATABASE", Value: "n8n"},
								{Name: "DB_POSTGRESDB_USER", Value: "n8n"},
								{
									Name: "DB_POSTGRESDB_PASSWORD",
									ValueFrom: &corev1.EnvVarSource{
										SecretKeyRef: &corev1.SecretKeySelector{
											LocalObjectReference: corev1.LocalObjectReference{Name: SecretName},
											Key:                  secretKeyDBPass,
										},
									},
								},
								{
									Name: "N8N_ENCRYPTION_KEY",
									ValueFrom: &corev1.EnvVarSource{
										SecretKeyRef: &corev1.SecretKeySelector{
											LocalObjectReference: corev1.LocalObjectReference{Name: SecretName},
											Key:                  secretKeyEncKey,
										},
									},
								},
								{Name: "N8N_HOST", Value: spec.Domain},
								{Name: "N8N_PROTOCOL", Value: "https"},
								{Name: "WEBHOOK_URL", Value: fmt.Sprintf("https://%s/", spec.Domain)},
							},
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceCPU:    resource.MustParse(spec.CPURequest),
									corev1.ResourceMemory: resource.MustParse(spec.MemoryRequest),
								},
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: "data", MountPath: "/home/node/.n8n"},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "data",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: DataVolumeName},
							},
						},
					},
				},
			},
		},
	}
}

func buildService(spec AppSpec) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName,
			Namespace: spec.Namespace,
			Labels:    labels(WorkloadName),
			Annotations: map[string]string{
				// NEG-based load balancing for the GKE ingress controller.
				"cloud.google.com/neg": `{"ingress": true}`,
			},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: map[string]string{appLabelKey: WorkloadName},
			Ports:    []corev1.ServicePort{{Port: 80, TargetPort: intstr.FromInt32(n8nPort)}},
		},
	}
}

func buildIngress(spec AppSpec) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      IngressName,
			Namespace: spec.Namespace,
			Labels:    labels(WorkloadName),
			Annotations: map[string]string{
				"kubernetes.io/ingress.global-static-ip-name": spec.AddressName,
				"ingress.gcp.kubernetes.io/pre-shared-cert":   spec.CertificateName,
				"kubernetes.io/ingress.allow-http":            "false",
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					Host: spec.Domain,
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: ServiceName,
											Port: networkingv1.ServiceBackendPort{Number: 80},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
